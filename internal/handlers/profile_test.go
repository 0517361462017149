package handlers

import (
	"database/sql/driver"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type uuidConverter struct{}

func (uuidConverter) ConvertValue(v interface{}) (driver.Value, error) {
	if id, ok := v.(uuid.UUID); ok {
		return id.String(), nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New(sqlmock.ValueConverterOption(uuidConverter{}))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 conn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open gorm over sqlmock: %v", err)
	}
	return db, mock
}

// newCheckInApp stands in for the auth middleware by pinning the user id.
func newCheckInApp(db *gorm.DB, userID uuid.UUID) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("currentUserID", userID)
		return c.Next()
	})
	app.Post("/check-in", NewProfileHandler(db).CheckIn)
	return app
}

type checkInResponse struct {
	Success bool `json:"success"`
	Data    struct {
		RewardPoints   int64 `json:"reward_points"`
		CheckInStreak  int   `json:"check_in_streak"`
		AlreadyClaimed bool  `json:"already_claimed"`
	} `json:"data"`
}

func doCheckIn(t *testing.T, app *fiber.App) checkInResponse {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest("POST", "/check-in", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}

	var out checkInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func userCheckInRows(userID uuid.UUID, lastDate string, streak int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "points", "last_check_in_date", "check_in_streak"}).
		AddRow(userID.String(), int64(100), lastDate, streak)
}

func TestCheckInFirstClaimOfTheDay(t *testing.T) {
	db, mock := newMockDB(t)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "users" WHERE id`).
		WillReturnRows(userCheckInRows(userID, "", 0))
	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out := doCheckIn(t, newCheckInApp(db, userID))
	if out.Data.AlreadyClaimed {
		t.Fatal("first claim reported as already claimed")
	}
	if out.Data.RewardPoints != 10 {
		t.Fatalf("reward = %d, want 10", out.Data.RewardPoints)
	}
	if out.Data.CheckInStreak != 1 {
		t.Fatalf("streak = %d, want 1", out.Data.CheckInStreak)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("statement mismatch: %v", err)
	}
}

func TestCheckInSameDayIsNoOp(t *testing.T) {
	db, mock := newMockDB(t)
	userID := uuid.New()
	today := time.Now().Format("2006-01-02")

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "users" WHERE id`).
		WillReturnRows(userCheckInRows(userID, today, 3))
	mock.ExpectCommit()

	out := doCheckIn(t, newCheckInApp(db, userID))
	if !out.Data.AlreadyClaimed {
		t.Fatal("same-day claim not reported as already claimed")
	}
	if out.Data.RewardPoints != 0 {
		t.Fatalf("reward = %d, want 0", out.Data.RewardPoints)
	}
	if out.Data.CheckInStreak != 3 {
		t.Fatalf("streak = %d, want 3", out.Data.CheckInStreak)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no-op claim still wrote: %v", err)
	}
}

// Two devices can read yesterday's date before either claims. The guarded
// update lets only one through; the loser must not report a reward it never
// credited.
func TestCheckInConcurrentClaimLoser(t *testing.T) {
	db, mock := newMockDB(t)
	userID := uuid.New()
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "users" WHERE id`).
		WillReturnRows(userCheckInRows(userID, yesterday, 2))
	mock.ExpectExec(`UPDATE "users" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	out := doCheckIn(t, newCheckInApp(db, userID))
	if !out.Data.AlreadyClaimed {
		t.Fatal("losing claim not reported as already claimed")
	}
	if out.Data.RewardPoints != 0 {
		t.Fatalf("reward = %d, want 0", out.Data.RewardPoints)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("statement mismatch: %v", err)
	}
}
