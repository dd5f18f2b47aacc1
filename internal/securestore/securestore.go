package securestore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"peer-jury/internal/vault"
)

// ErrRecordNotFound is returned when the requested record does not exist
var ErrRecordNotFound = errors.New("encrypted record not found")

// Key used to protect evaluation feedback at rest
const FeedbackKeyName = "evaluation-feedback"

// SecureRecord is a Vault-encrypted payload stored in the database. Only the
// ciphertext leaves the process; Vault never sees the database and the
// database never sees the plaintext.
type SecureRecord struct {
	ID         int64     `json:"id"`
	RecordType string    `json:"record_type"`
	Ciphertext string    `json:"-"`
	KeyName    string    `json:"key_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SecureStore manages encrypted records using Vault's transit engine
type SecureStore struct {
	db    *sql.DB
	vault *vault.Client
}

// NewSecureStore creates a new SecureStore instance and ensures the transit
// key exists
func NewSecureStore(db *sql.DB, vaultClient *vault.Client) (*SecureStore, error) {
	if err := vaultClient.CreateKey(FeedbackKeyName, "aes256-gcm96"); err != nil {
		return nil, fmt.Errorf("failed to create transit key: %w", err)
	}

	return &SecureStore{
		db:    db,
		vault: vaultClient,
	}, nil
}

// EncryptRecord encrypts a plaintext with the transit engine and stores the
// resulting ciphertext, returning the record ID
func (ss *SecureStore) EncryptRecord(recordType, plaintext string) (int64, error) {
	ciphertext, err := ss.vault.Encrypt(FeedbackKeyName, []byte(plaintext), map[string]string{
		"record_type": recordType,
	})
	if err != nil {
		return 0, fmt.Errorf("encryption failed: %w", err)
	}

	var id int64
	query := `
		INSERT INTO encrypted_records (record_type, ciphertext, key_name)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	if err := ss.db.QueryRow(query, recordType, ciphertext, FeedbackKeyName).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to store encrypted record: %w", err)
	}

	return id, nil
}

// UpdateRecord re-encrypts a record in place, keeping its ID stable so
// foreign keys survive resubmissions
func (ss *SecureStore) UpdateRecord(id int64, recordType, plaintext string) error {
	ciphertext, err := ss.vault.Encrypt(FeedbackKeyName, []byte(plaintext), map[string]string{
		"record_type": recordType,
	})
	if err != nil {
		return fmt.Errorf("encryption failed: %w", err)
	}

	result, err := ss.db.Exec(`
		UPDATE encrypted_records
		SET ciphertext = $1, updated_at = NOW()
		WHERE id = $2
	`, ciphertext, id)
	if err != nil {
		return fmt.Errorf("failed to update encrypted record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// DecryptRecord loads a record and returns its plaintext
func (ss *SecureStore) DecryptRecord(id int64) (string, error) {
	var recordType, ciphertext, keyName string
	query := `
		SELECT record_type, ciphertext, key_name
		FROM encrypted_records
		WHERE id = $1
	`
	err := ss.db.QueryRow(query, id).Scan(&recordType, &ciphertext, &keyName)
	if err == sql.ErrNoRows {
		return "", ErrRecordNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load encrypted record: %w", err)
	}

	plaintext, err := ss.vault.Decrypt(keyName, ciphertext, map[string]string{
		"record_type": recordType,
	})
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}

	return string(plaintext), nil
}

// DeleteRecord removes an encrypted record
func (ss *SecureStore) DeleteRecord(id int64) error {
	_, err := ss.db.Exec(`DELETE FROM encrypted_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete encrypted record: %w", err)
	}
	return nil
}
