package tasks

import (
	"fmt"

	"github.com/desertthunder/recap/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Tokenize Phase = iota
	CreateSubscription
	ConfirmPayment
	RefreshStatus
	FetchHistory
	ExportTranscript
)

func (p Phase) String() string {
	switch p {
	case Tokenize:
		return "tokenize"
	case CreateSubscription:
		return "create_subscription"
	case ConfirmPayment:
		return "confirm_payment"
	case RefreshStatus:
		return "refresh_status"
	case FetchHistory:
		return "fetch_history"
	case ExportTranscript:
		return "export_transcript"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}

const subscribeSteps = 4

func tokenizeUpdate(last4 string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Tokenize,
		Step:    1,
		Total:   subscribeSteps,
		Message: fmt.Sprintf("Tokenizing card ending in %s...", last4),
	}
}

func createSubscriptionUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateSubscription,
		Step:    2,
		Total:   subscribeSteps,
		Message: "Creating subscription...",
	}
}

func confirmPaymentUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   ConfirmPayment,
		Step:    3,
		Total:   subscribeSteps,
		Message: "Confirming payment...",
	}
}

func refreshStatusUpdate(attempt int, status *models.SubscriptionStatus) ProgressUpdate {
	msg := "Refreshing subscription status..."
	if attempt > 1 {
		msg = fmt.Sprintf("Waiting for the subscription to activate (attempt %d)...", attempt)
	}
	return ProgressUpdate{
		Phase:   RefreshStatus,
		Step:    4,
		Total:   subscribeSteps,
		Message: msg,
		Data:    status,
	}
}

func fetchHistoryUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHistory,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d transcripts in history", count),
	}
}

func exportCompletedUpdate(step, total int, title, file string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportTranscript,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s -> %s", step, total, title, file),
	}
}

func exportFailedUpdate(step, total int, title, reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportTranscript,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, title, reason),
	}
}
