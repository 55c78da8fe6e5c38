package bot

// pendingKind names what a user's next free-text message answers.
type pendingKind int

const (
	pendingExpenseAmount pendingKind = iota
	pendingExpenseMerchant
	pendingExpenseNote
	pendingBillName
	pendingBillAmount
	pendingBillDue
	pendingReflectWell
	pendingReflectImprove
)

// pendingInput is a one-shot prompt state. The next text message from
// the user consumes it; commands and new expenses do not stack.
type pendingInput struct {
	kind      pendingKind
	expenseID int
	billID    int
	// messageID is the keyboard message to re-render after the edit.
	messageID int
	// wentWell carries the first reflection answer into the second step.
	wentWell string
}

// setPending replaces the user's pending prompt.
func (b *Bot) setPending(userID int64, input *pendingInput) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	b.pending[userID] = input
}

// takePending removes and returns the user's pending prompt, or nil.
func (b *Bot) takePending(userID int64) *pendingInput {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()

	input, ok := b.pending[userID]
	if !ok {
		return nil
	}
	delete(b.pending, userID)
	return input
}

// clearPending drops the user's pending prompt if any.
func (b *Bot) clearPending(userID int64) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	delete(b.pending, userID)
}
