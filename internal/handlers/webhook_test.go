package handlers

import "testing"

func TestExtractPaymentEvent(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantOrderID string
		wantStatus  string
		wantEventID string
		wantErr     bool
	}{
		{
			name:        "flat invoice callback",
			body:        `{"id": "inv-1", "external_id": "ORD-1700000000000", "status": "PAID"}`,
			wantOrderID: "ORD-1700000000000",
			wantStatus:  "PAID",
			wantEventID: "inv-1",
		},
		{
			name:        "nested payment event",
			body:        `{"data": {"id": "ev-9", "reference_id": "ORD-1700000000001", "status": "SETTLED"}}`,
			wantOrderID: "ORD-1700000000001",
			wantStatus:  "SETTLED",
			wantEventID: "ev-9",
		},
		{
			name:        "flat fields win over nested",
			body:        `{"external_id": "ORD-A", "status": "PAID", "data": {"reference_id": "ORD-B", "status": "EXPIRED"}}`,
			wantOrderID: "ORD-A",
			wantStatus:  "PAID",
		},
		{
			name:    "not json",
			body:    `<xml/>`,
			wantErr: true,
		},
		{
			name: "empty object",
			body: `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := extractPaymentEvent([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("extractPaymentEvent: %v", err)
			}
			if ev.OrderID != tt.wantOrderID {
				t.Fatalf("order id = %q, want %q", ev.OrderID, tt.wantOrderID)
			}
			if ev.Status != tt.wantStatus {
				t.Fatalf("status = %q, want %q", ev.Status, tt.wantStatus)
			}
			if tt.wantEventID != "" && ev.EventID != tt.wantEventID {
				t.Fatalf("event id = %q, want %q", ev.EventID, tt.wantEventID)
			}
		})
	}
}
