// The privora model keeps the submissions accepted by the development node.
package model

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const SubmissionStatusAccepted = "accepted"

// A proof submission accepted by the node.
// Payload holds the raw JSON value sent inside the envelope.
type Submission struct {
	Id        string
	Payload   string
	Status    string
	CreatedAt time.Time
}

// Privora model shared among the internal workers.
type PrivoraModel struct {
	submissionRepository *SubmissionRepository
}

// Create a new model.
func NewPrivoraModel(db *sqlx.DB) *PrivoraModel {
	submissionRepository := SubmissionRepository{Db: db}
	err := submissionRepository.CreateTables()
	if err != nil {
		panic(err)
	}
	return &PrivoraModel{
		submissionRepository: &submissionRepository,
	}
}

func (m *PrivoraModel) GetSubmissionRepository() *SubmissionRepository {
	return m.submissionRepository
}

// Accept a submission, assigning it a fresh id.
func (m *PrivoraModel) AddSubmission(ctx context.Context, payload []byte) (*Submission, error) {
	submission := Submission{
		Id:        uuid.NewString(),
		Payload:   string(payload),
		Status:    SubmissionStatusAccepted,
		CreatedAt: time.Now().UTC(),
	}
	return m.submissionRepository.Create(ctx, submission)
}

func (m *PrivoraModel) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	return m.submissionRepository.FindById(ctx, id)
}

func (m *PrivoraModel) ListSubmissions(ctx context.Context, limit int) ([]Submission, error) {
	return m.submissionRepository.FindAll(ctx, limit)
}

func (m *PrivoraModel) CountSubmissions(ctx context.Context) (uint64, error) {
	return m.submissionRepository.Count(ctx)
}
