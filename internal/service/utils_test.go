package service

import (
	"testing"

	"peer-jury/internal/models"
)

func TestContainsString(t *testing.T) {
	roles := []string{"student", "professor"}

	if !containsString(roles, "student") {
		t.Error("Expected to find 'student' in slice")
	}

	if containsString(roles, "admin") {
		t.Error("Did not expect to find 'admin' in slice")
	}

	if containsString(nil, "student") {
		t.Error("Did not expect to find anything in nil slice")
	}
}

func TestHasAtMostTwoDecimals(t *testing.T) {
	tests := []struct {
		score float64
		want  bool
	}{
		{7, true},
		{7.5, true},
		{7.25, true},
		{9.99, true},
		{1.0, true},
		{7.125, false},
		{3.333333, false},
	}

	for _, tt := range tests {
		if got := hasAtMostTwoDecimals(tt.score); got != tt.want {
			t.Errorf("hasAtMostTwoDecimals(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestSampleUsers(t *testing.T) {
	pool := make([]models.User, 10)
	for i := range pool {
		pool[i] = models.User{ID: uint(i + 1)}
	}

	selected, err := sampleUsers(pool, 4)
	if err != nil {
		t.Fatalf("sampleUsers failed: %v", err)
	}

	if len(selected) != 4 {
		t.Fatalf("Expected 4 selected users, got %d", len(selected))
	}

	// No duplicates, and every pick comes from the pool
	seen := make(map[uint]bool)
	for _, u := range selected {
		if seen[u.ID] {
			t.Errorf("User %d selected twice", u.ID)
		}
		seen[u.ID] = true

		if u.ID < 1 || u.ID > 10 {
			t.Errorf("User %d is not from the pool", u.ID)
		}
	}

	// The input pool must not be reordered
	for i := range pool {
		if pool[i].ID != uint(i+1) {
			t.Error("sampleUsers modified the input pool")
			break
		}
	}
}

func TestSampleUsersFullPool(t *testing.T) {
	pool := []models.User{{ID: 1}, {ID: 2}, {ID: 3}}

	selected, err := sampleUsers(pool, 3)
	if err != nil {
		t.Fatalf("sampleUsers failed: %v", err)
	}

	if len(selected) != 3 {
		t.Fatalf("Expected 3 selected users, got %d", len(selected))
	}

	seen := make(map[uint]bool)
	for _, u := range selected {
		seen[u.ID] = true
	}
	if len(seen) != 3 {
		t.Errorf("Expected all 3 distinct users when k equals pool size, got %d", len(seen))
	}
}

func TestSampleUsersDistribution(t *testing.T) {
	// Every user should be picked at least once over many draws
	pool := make([]models.User, 5)
	for i := range pool {
		pool[i] = models.User{ID: uint(i + 1)}
	}

	picked := make(map[uint]int)
	for i := 0; i < 200; i++ {
		selected, err := sampleUsers(pool, 2)
		if err != nil {
			t.Fatalf("sampleUsers failed: %v", err)
		}
		for _, u := range selected {
			picked[u.ID]++
		}
	}

	for _, u := range pool {
		if picked[u.ID] == 0 {
			t.Errorf("User %d was never selected in 200 draws", u.ID)
		}
	}
}
