package model

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/privora/privora-go/internal/commons"
	"github.com/stretchr/testify/suite"
)

type SubmissionRepositorySuite struct {
	suite.Suite
	repository *SubmissionRepository
}

func (s *SubmissionRepositorySuite) SetupTest() {
	commons.ConfigureLog(slog.LevelDebug)
	db := sqlx.MustConnect("sqlite3", ":memory:")
	s.repository = &SubmissionRepository{
		Db: db,
	}
	err := s.repository.CreateTables()
	s.NoError(err)
}

func TestSubmissionRepositorySuite(t *testing.T) {
	suite.Run(t, new(SubmissionRepositorySuite))
}

func (s *SubmissionRepositorySuite) TestCreateSubmission() {
	ctx := context.Background()
	_, err := s.repository.Create(ctx, Submission{
		Id:        "s1",
		Payload:   `{"x": 1}`,
		Status:    SubmissionStatusAccepted,
		CreatedAt: time.Now().UTC(),
	})
	s.NoError(err)
	count, err := s.repository.Count(ctx)
	s.NoError(err)
	s.Equal(1, int(count))
}

func (s *SubmissionRepositorySuite) TestFindById() {
	ctx := context.Background()
	createdAt := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	_, err := s.repository.Create(ctx, Submission{
		Id:        "s1",
		Payload:   `{"x": 1}`,
		Status:    SubmissionStatusAccepted,
		CreatedAt: createdAt,
	})
	s.NoError(err)
	submission, err := s.repository.FindById(ctx, "s1")
	s.NoError(err)
	s.NotNil(submission)
	s.Equal(`{"x": 1}`, submission.Payload)
	s.Equal(SubmissionStatusAccepted, submission.Status)
	s.Equal(createdAt, submission.CreatedAt)
}

func (s *SubmissionRepositorySuite) TestFindByIdMissing() {
	ctx := context.Background()
	submission, err := s.repository.FindById(ctx, "idontexist")
	s.NoError(err)
	s.Nil(submission)
}

func (s *SubmissionRepositorySuite) TestFindAllNewestFirst() {
	ctx := context.Background()
	base := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"s1", "s2", "s3"} {
		_, err := s.repository.Create(ctx, Submission{
			Id:        id,
			Payload:   `{}`,
			Status:    SubmissionStatusAccepted,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		s.NoError(err)
	}
	submissions, err := s.repository.FindAll(ctx, 2)
	s.NoError(err)
	s.Len(submissions, 2)
	s.Equal("s3", submissions[0].Id)
	s.Equal("s2", submissions[1].Id)
}
