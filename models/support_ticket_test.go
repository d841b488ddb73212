package models

import (
	"testing"
	"time"
)

func TestTicketBeforeSaveResolved(t *testing.T) {
	ticket := &SupportTicket{Status: TicketResolved}
	if err := ticket.BeforeSave(nil); err != nil {
		t.Fatalf("BeforeSave: %v", err)
	}
	if ticket.ResolvedAt == nil {
		t.Fatal("resolved_at должен выставляться при статусе resolved")
	}

	// Повторное сохранение не должно сдвигать время.
	stamp := *ticket.ResolvedAt
	if err := ticket.BeforeSave(nil); err != nil {
		t.Fatalf("BeforeSave: %v", err)
	}
	if !ticket.ResolvedAt.Equal(stamp) {
		t.Error("resolved_at не должен обновляться при повторном сохранении")
	}
}

func TestTicketBeforeSaveReopen(t *testing.T) {
	now := time.Now()
	ticket := &SupportTicket{Status: TicketInProgress, ResolvedAt: &now}
	if err := ticket.BeforeSave(nil); err != nil {
		t.Fatalf("BeforeSave: %v", err)
	}
	if ticket.ResolvedAt != nil {
		t.Error("resolved_at должен сбрасываться при возврате тикета в работу")
	}
}

func TestValidTicketStatus(t *testing.T) {
	for _, s := range []string{TicketOpen, TicketInProgress, TicketResolved, TicketClosed} {
		if !ValidTicketStatus(s) {
			t.Errorf("статус %q должен быть допустимым", s)
		}
	}
	if ValidTicketStatus("deleted") {
		t.Error("неизвестный статус не должен проходить проверку")
	}
}

func TestValidTicketPriority(t *testing.T) {
	if !ValidTicketPriority(PriorityUrgent) {
		t.Error("urgent должен быть допустимым приоритетом")
	}
	if ValidTicketPriority("critical") {
		t.Error("неизвестный приоритет не должен проходить проверку")
	}
}
