package digest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/studyloop/tutor-backend/internal/homework"
)

const digestSchema = `
CREATE TABLE digests (
	assignment_id         uuid PRIMARY KEY,
	student_id            uuid NOT NULL,
	top_problems          jsonb NOT NULL,
	summary               jsonb NOT NULL,
	confirmed_problem_ids jsonb,
	checksum              text NOT NULL,
	generated_at          timestamptz NOT NULL
)`

// startPostgres spins up a disposable PostgreSQL container with the
// digest schema applied.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("tutor"),
		tcpostgres.WithUsername("tutor"),
		tcpostgres.WithPassword("tutor"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminating container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, digestSchema); err != nil {
		t.Fatalf("applying schema: %v", err)
	}
	return pool
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	pool := startPostgres(t)
	store, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	ctx := context.Background()

	want := sampleDigest(uuid.NewString())
	want.StudentID = uuid.NewString()
	// timestamptz keeps microsecond precision.
	want.GeneratedAt = time.Now().UTC().Truncate(time.Microsecond)

	if err := store.UpsertDigest(ctx, want); err != nil {
		t.Fatalf("UpsertDigest() error = %v", err)
	}

	got, err := store.GetDigest(ctx, want.AssignmentID)
	if err != nil {
		t.Fatalf("GetDigest() error = %v", err)
	}
	if got.StudentID != want.StudentID || got.Checksum != want.Checksum {
		t.Errorf("identity fields differ: %+v", got)
	}
	if !reflect.DeepEqual(got.TopProblems, want.TopProblems) {
		t.Errorf("TopProblems = %+v, want %+v", got.TopProblems, want.TopProblems)
	}
	if !reflect.DeepEqual(got.Summary, want.Summary) {
		t.Errorf("Summary = %+v, want %+v", got.Summary, want.Summary)
	}
	if !got.GeneratedAt.Equal(want.GeneratedAt) {
		t.Errorf("GeneratedAt = %v, want %v", got.GeneratedAt, want.GeneratedAt)
	}
}

func TestPostgresStore_UpsertReplaces(t *testing.T) {
	pool := startPostgres(t)
	store, _ := NewPostgresStore(pool)
	ctx := context.Background()

	d := sampleDigest(uuid.NewString())
	d.StudentID = uuid.NewString()
	d.GeneratedAt = time.Now().UTC().Truncate(time.Microsecond)
	if err := store.UpsertDigest(ctx, d); err != nil {
		t.Fatalf("first UpsertDigest() error = %v", err)
	}

	d.Checksum = "regenerated"
	d.TopProblems = d.TopProblems[:1]
	d.GeneratedAt = d.GeneratedAt.Add(time.Hour)
	if err := store.UpsertDigest(ctx, d); err != nil {
		t.Fatalf("second UpsertDigest() error = %v", err)
	}

	got, err := store.GetDigest(ctx, d.AssignmentID)
	if err != nil {
		t.Fatalf("GetDigest() error = %v", err)
	}
	if got.Checksum != "regenerated" || len(got.TopProblems) != 1 {
		t.Errorf("digest not replaced: %+v", got)
	}
}

func TestPostgresStore_ConfirmAndNotFound(t *testing.T) {
	pool := startPostgres(t)
	store, _ := NewPostgresStore(pool)
	ctx := context.Background()

	if _, err := store.GetDigest(ctx, uuid.NewString()); !errors.Is(err, homework.ErrNotFound) {
		t.Errorf("GetDigest() error = %v, want ErrNotFound", err)
	}
	if err := store.SetConfirmedProblems(ctx, uuid.NewString(), []string{"p1"}); !errors.Is(err, homework.ErrNotFound) {
		t.Errorf("SetConfirmedProblems() error = %v, want ErrNotFound", err)
	}

	d := sampleDigest(uuid.NewString())
	d.StudentID = uuid.NewString()
	d.GeneratedAt = time.Now().UTC().Truncate(time.Microsecond)
	if err := store.UpsertDigest(ctx, d); err != nil {
		t.Fatalf("UpsertDigest() error = %v", err)
	}
	if err := store.SetConfirmedProblems(ctx, d.AssignmentID, []string{"p1", "p2"}); err != nil {
		t.Fatalf("SetConfirmedProblems() error = %v", err)
	}

	got, err := store.GetDigest(ctx, d.AssignmentID)
	if err != nil {
		t.Fatalf("GetDigest() error = %v", err)
	}
	if !reflect.DeepEqual(got.ConfirmedProblemIDs, []string{"p1", "p2"}) {
		t.Errorf("ConfirmedProblemIDs = %v", got.ConfirmedProblemIDs)
	}
}
