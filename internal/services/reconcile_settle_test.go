package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"

	"github.com/example/megautama/internal/cache"
	"github.com/example/megautama/internal/models"
)

func orderRows(pk uuid.UUID, orderID string, userID uuid.UUID, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "order_id", "user_id", "status"}).
		AddRow(pk.String(), orderID, userID.String(), status)
}

// orderItemRows keys the items to the order primary key, the way the preload
// reads them back.
func orderItemRows(orderPK uuid.UUID, price float64, quantity int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "order_ref", "unit_price", "quantity"}).
		AddRow(uuid.New().String(), orderPK.String(), price, quantity)
}

func TestOnPaymentEventSettlesAndCreditsPoints(t *testing.T) {
	db, mock := newMockDB(t)
	orderPK := uuid.New()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "orders" WHERE order_id.*FOR UPDATE`).
		WillReturnRows(orderRows(orderPK, "ORD-1", userID, models.StatusAwaitingPayment))
	mock.ExpectQuery(`FROM "order_items"`).
		WillReturnRows(orderItemRows(orderPK, 150000, 2))
	mock.ExpectExec(`UPDATE "orders" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "users" SET "points"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewReconcileService(db, nil)
	outcome, err := svc.OnPaymentEvent(context.Background(), PaymentEvent{OrderID: "ORD-1", Status: "PAID"})
	if err != nil {
		t.Fatalf("OnPaymentEvent: %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeCompleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("statement mismatch: %v", err)
	}
}

// A redelivered event for an order that is already paid must not touch the
// order again and must not credit points a second time.
func TestOnPaymentEventAlreadyPaidOrder(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	orderPK := uuid.New()
	mock.ExpectQuery(`FROM "orders" WHERE order_id.*FOR UPDATE`).
		WillReturnRows(orderRows(orderPK, "ORD-2", uuid.New(), models.StatusPaid))
	mock.ExpectQuery(`FROM "order_items"`).
		WillReturnRows(orderItemRows(orderPK, 150000, 2))
	mock.ExpectCommit()

	svc := NewReconcileService(db, nil)
	outcome, err := svc.OnPaymentEvent(context.Background(), PaymentEvent{OrderID: "ORD-2", Status: "SETTLED"})
	if err != nil {
		t.Fatalf("OnPaymentEvent: %v", err)
	}
	if outcome != OutcomeAlreadyPaid {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeAlreadyPaid)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("paid order was written to again: %v", err)
	}
}

// Two deliveries can both read the order as awaiting payment before either
// writes. The loser of the conditional update must back off without crediting
// points.
func TestOnPaymentEventLosesConditionalUpdate(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	orderPK := uuid.New()
	mock.ExpectQuery(`FROM "orders" WHERE order_id.*FOR UPDATE`).
		WillReturnRows(orderRows(orderPK, "ORD-3", uuid.New(), models.StatusAwaitingPayment))
	mock.ExpectQuery(`FROM "order_items"`).
		WillReturnRows(orderItemRows(orderPK, 150000, 2))
	mock.ExpectExec(`UPDATE "orders" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	svc := NewReconcileService(db, nil)
	outcome, err := svc.OnPaymentEvent(context.Background(), PaymentEvent{OrderID: "ORD-3", Status: "PAID"})
	if err != nil {
		t.Fatalf("OnPaymentEvent: %v", err)
	}
	if outcome != OutcomeAlreadyPaid {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeAlreadyPaid)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("losing delivery still wrote: %v", err)
	}
}

// A settle that fails after the dedupe marker is set must release the marker,
// so a gateway redelivery gets another shot at the database instead of being
// answered from the cache. Once a delivery settles, later ones short-circuit.
func TestOnPaymentEventRetriesAfterSettleFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := cache.NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() { rdb.Close() })
	dedupe := cache.NewEventDedupe(rdb, time.Hour)

	db, mock := newMockDB(t)
	orderPK := uuid.New()
	userID := uuid.New()
	ev := PaymentEvent{EventID: "ev-retry", OrderID: "ORD-4", Status: "PAID"}

	// First delivery: the database is down mid-settle.
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "orders" WHERE order_id.*FOR UPDATE`).
		WillReturnError(errors.New("connection refused"))
	mock.ExpectRollback()

	svc := NewReconcileService(db, dedupe)
	if _, err := svc.OnPaymentEvent(context.Background(), ev); err == nil {
		t.Fatal("expected a settle error")
	}
	if mr.Exists("webhook:seen:" + ev.EventID) {
		t.Fatal("delivery marker survived a failed settle")
	}

	// Redelivery of the same event settles normally.
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM "orders" WHERE order_id.*FOR UPDATE`).
		WillReturnRows(orderRows(orderPK, ev.OrderID, userID, models.StatusAwaitingPayment))
	mock.ExpectQuery(`FROM "order_items"`).
		WillReturnRows(orderItemRows(orderPK, 150000, 2))
	mock.ExpectExec(`UPDATE "orders" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "users" SET "points"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := svc.OnPaymentEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if outcome != OutcomeCompleted {
		t.Fatalf("redelivery outcome = %q, want %q", outcome, OutcomeCompleted)
	}

	// A third delivery never reaches the database.
	outcome, err = svc.OnPaymentEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("third delivery: %v", err)
	}
	if outcome != OutcomeAlreadyPaid {
		t.Fatalf("third delivery outcome = %q, want %q", outcome, OutcomeAlreadyPaid)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("statement mismatch: %v", err)
	}
}
