package scheduler

import (
	"log/slog"
	"time"

	"peer-jury/internal/config"
	"peer-jury/internal/email"
	"peer-jury/internal/repository"
)

// Scheduler handles periodic tasks
type Scheduler struct {
	sessionRepo     *repository.SessionRepository
	deliverableRepo *repository.DeliverableRepository
	assignmentRepo  *repository.JuryAssignmentRepository
	projectRepo     *repository.ProjectRepository
	emailService    *email.Service
	config          *config.SchedulerConfig
	stopChan        chan bool
}

// NewScheduler creates a new scheduler
func NewScheduler(
	sessionRepo *repository.SessionRepository,
	deliverableRepo *repository.DeliverableRepository,
	assignmentRepo *repository.JuryAssignmentRepository,
	projectRepo *repository.ProjectRepository,
	emailService *email.Service,
	cfg *config.SchedulerConfig,
) *Scheduler {
	return &Scheduler{
		sessionRepo:     sessionRepo,
		deliverableRepo: deliverableRepo,
		assignmentRepo:  assignmentRepo,
		projectRepo:     projectRepo,
		emailService:    emailService,
		config:          cfg,
		stopChan:        make(chan bool),
	}
}

// Start starts all scheduled tasks
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler",
		"session_cleanup_interval", s.config.SessionCleanupInterval,
		"due_date_reminders_enabled", s.config.EnableDueDateReminders)

	go s.scheduleIntervalTask(s.config.SessionCleanupInterval, "session_cleanup", s.cleanupExpiredSessions)

	if s.config.EnableDueDateReminders {
		// Reminders run hourly; the repository window keeps them one-shot
		go s.scheduleIntervalTask(time.Hour, "due_date_reminders", s.sendDueDateReminders)
	}

	slog.Info("Scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	slog.Info("Stopping scheduler")
	close(s.stopChan)
}

// scheduleIntervalTask runs a task at regular intervals
func (s *Scheduler) scheduleIntervalTask(interval time.Duration, taskName string, task func()) {
	slog.Info("Starting interval task", "task", taskName, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately on start
	slog.Info("Running interval task", "task", taskName)
	task()

	for {
		select {
		case <-ticker.C:
			slog.Info("Running interval task", "task", taskName)
			task()
		case <-s.stopChan:
			return
		}
	}
}

// cleanupExpiredSessions purges sessions past their expiry
func (s *Scheduler) cleanupExpiredSessions() {
	if err := s.sessionRepo.DeleteExpiredSessions(); err != nil {
		slog.Error("Failed to clean up expired sessions", "error", err)
		return
	}
	slog.Info("Expired sessions cleaned up")
}

// sendDueDateReminders emails jurors with pending evaluations on deliverables
// due within the configured window. The window advances one hour per run so
// each deliverable is only picked up once.
func (s *Scheduler) sendDueDateReminders() {
	reminderWindow := time.Duration(s.config.DueDateReminderHours) * time.Hour
	now := time.Now()
	from := now.Add(reminderWindow - time.Hour)
	to := now.Add(reminderWindow)

	deliverables, err := s.deliverableRepo.GetDueBetween(from, to)
	if err != nil {
		slog.Error("Failed to get deliverables for due date reminders", "error", err)
		return
	}

	remindersSent := 0
	for _, deliverable := range deliverables {
		project, err := s.projectRepo.GetByID(deliverable.ProjectID)
		if err != nil {
			slog.Error("Failed to get project for reminder", "deliverable_id", deliverable.ID, "error", err)
			continue
		}

		pending, err := s.assignmentRepo.GetPendingEvaluators(deliverable.ID)
		if err != nil {
			slog.Error("Failed to get pending evaluators", "deliverable_id", deliverable.ID, "error", err)
			continue
		}

		dueDate := deliverable.DueDate.Format("2006-01-02 15:04")
		for _, juror := range pending {
			if err := s.emailService.SendDueDateReminderEmail(juror.Email, juror.FullName, deliverable.Title, project.Title, dueDate); err != nil {
				slog.Error("Failed to send due date reminder",
					"deliverable_id", deliverable.ID,
					"juror_email", juror.Email,
					"error", err,
				)
				continue
			}
			remindersSent++
		}
	}

	slog.Info("Due date reminders completed", "reminders_sent", remindersSent)
}
