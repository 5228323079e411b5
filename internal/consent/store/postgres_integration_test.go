//go:build integration

package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"voxguard/internal/consent/models"
	"voxguard/internal/consent/store"
	"voxguard/pkg/domain"
	"voxguard/pkg/platform/sentinel"
	txcontext "voxguard/pkg/platform/tx"
	"voxguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	subject  domain.SubjectHash
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
	subject, err := domain.ParseSubjectHash(strings.Repeat("ab", 32))
	s.Require().NoError(err)
	s.subject = subject
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "consent_records"))
}

func (s *PostgresStoreSuite) record(purpose domain.ConsentPurpose, granted bool, at time.Time) *models.Record {
	return &models.Record{
		SubjectHash:   s.subject,
		Purpose:       purpose,
		Granted:       granted,
		Timestamp:     at,
		SourceVersion: "web-2.4",
		OriginIP:      "203.0.113.0",
		UserAgent:     "Firefox 128/Linux",
	}
}

// TestLatestBreaksTiesInWriteOrder covers two decisions recorded within the
// same instant: the later write wins.
func (s *PostgresStoreSuite) TestLatestBreaksTiesInWriteOrder() {
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Microsecond)

	s.Require().NoError(s.store.Append(ctx, s.record(domain.ConsentPurposeAnalytics, true, at)))
	s.Require().NoError(s.store.Append(ctx, s.record(domain.ConsentPurposeAnalytics, false, at)))

	latest, err := s.store.Latest(ctx, s.subject, domain.ConsentPurposeAnalytics)
	s.Require().NoError(err)
	s.False(latest.Granted)

	_, err = s.store.Latest(ctx, s.subject, domain.ConsentPurposeMarketing)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestErasure() {
	ctx := context.Background()
	now := time.Now().UTC()
	old := s.record(domain.ConsentPurposeMarketing, true, now.Add(-400*24*time.Hour))
	recent := s.record(domain.ConsentPurposeAnalytics, true, now.Add(-time.Hour))
	recent.SessionID = domain.NewSessionID()
	s.Require().NoError(s.store.Append(ctx, old))
	s.Require().NoError(s.store.Append(ctx, recent))

	s.Run("delete honors the retention cutoff", func() {
		n, err := s.store.DeleteBySubject(ctx, s.subject, now.Add(-365*24*time.Hour))
		s.Require().NoError(err)
		s.Equal(1, n)
	})

	s.Run("retained rows lose client metadata", func() {
		n, err := s.store.StripClientMetadata(ctx, s.subject)
		s.Require().NoError(err)
		s.Equal(1, n)

		records, err := s.store.ListBySubject(ctx, s.subject)
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.False(records[0].HasClientMetadata())
		s.Equal(recent.SessionID, records[0].SessionID)
		s.Equal("web-2.4", records[0].SourceVersion)
	})
}

func (s *PostgresStoreSuite) TestTransactionRollback() {
	ctx := context.Background()
	errAbort := errors.New("abort")

	err := txcontext.Run(ctx, s.postgres.DB, func(ctx context.Context) error {
		s.Require().NoError(s.store.Append(ctx, s.record(domain.ConsentPurposeAITraining, true, time.Now().UTC())))
		return errAbort
	})
	s.ErrorIs(err, errAbort)

	records, err := s.store.ListBySubject(ctx, s.subject)
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *PostgresStoreSuite) TestPurgeOlderThan() {
	ctx := context.Background()
	now := time.Now().UTC()
	s.Require().NoError(s.store.Append(ctx, s.record(domain.ConsentPurposeFunctional, true, now.Add(-3*365*24*time.Hour))))
	s.Require().NoError(s.store.Append(ctx, s.record(domain.ConsentPurposeFunctional, false, now)))

	n, err := s.store.PurgeOlderThan(ctx, now.Add(-2*365*24*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	s.Run("an aged withdrawal that is still the latest survives", func() {
		sixYearsAgo := now.Add(-6 * 365 * 24 * time.Hour)
		s.Require().NoError(s.store.Append(ctx, s.record(domain.ConsentPurposeVoiceProcessing, true, sixYearsAgo)))
		s.Require().NoError(s.store.Append(ctx, s.record(domain.ConsentPurposeVoiceProcessing, false, sixYearsAgo.Add(time.Minute))))

		n, err := s.store.PurgeOlderThan(ctx, now.Add(-1825*24*time.Hour))
		s.Require().NoError(err)
		s.Equal(1, n)

		latest, err := s.store.Latest(ctx, s.subject, domain.ConsentPurposeVoiceProcessing)
		s.Require().NoError(err)
		s.False(latest.Granted)
	})

	s.Run("subject erasure keeps only the newest withdrawal", func() {
		n, err := s.store.DeleteBySubject(ctx, s.subject, now.Add(-365*24*time.Hour))
		s.Require().NoError(err)
		s.Zero(n)

		records, err := s.store.ListBySubject(ctx, s.subject)
		s.Require().NoError(err)
		s.Len(records, 2)
	})
}
