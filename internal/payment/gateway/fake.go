package gateway

import (
	"context"
	"fmt"
	"sync"

	paymentdomain "github.com/smallbiznis/spacebook/internal/payment/domain"
)

// Fake is an in-memory Gateway. It honours idempotency keys like the real
// gateway does and lets tests move intents between statuses.
type Fake struct {
	mu          sync.Mutex
	seq         int
	intents     map[string]Intent
	idempotency map[string]string
	failures    map[string][]error
	calls       map[string]int
}

func NewFake() *Fake {
	return &Fake{
		intents:     map[string]Intent{},
		idempotency: map[string]string{},
		failures:    map[string][]error{},
		calls:       map[string]int{},
	}
}

func (f *Fake) CreateIntent(ctx context.Context, in CreateIntentInput) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("create_intent"); err != nil {
		return Intent{}, err
	}

	if id, ok := f.idempotency[in.IdempotencyKey]; ok && in.IdempotencyKey != "" {
		return f.intents[id], nil
	}

	f.seq++
	id := fmt.Sprintf("pi_fake_%d", f.seq)
	metadata := make(map[string]string, len(in.Metadata))
	for k, v := range in.Metadata {
		metadata[k] = v
	}
	intent := Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       paymentdomain.StatusRequiresPaymentMethod,
		AmountMinor:  in.AmountMinor,
		Currency:     in.Currency,
		Metadata:     metadata,
	}
	f.intents[id] = intent
	if in.IdempotencyKey != "" {
		f.idempotency[in.IdempotencyKey] = id
	}
	return intent, nil
}

func (f *Fake) RetrieveIntent(ctx context.Context, id string) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("retrieve_intent"); err != nil {
		return Intent{}, err
	}
	intent, ok := f.intents[id]
	if !ok {
		return Intent{}, &Error{Op: "retrieve_intent", Outcome: OutcomeRejected, Code: "resource_missing", Err: fmt.Errorf("no such intent %q", id)}
	}
	return intent, nil
}

func (f *Fake) UpdateIntentAmount(ctx context.Context, id string, amountMinor int64, currency string) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin("update_intent"); err != nil {
		return Intent{}, err
	}
	intent, ok := f.intents[id]
	if !ok {
		return Intent{}, &Error{Op: "update_intent", Outcome: OutcomeRejected, Code: "resource_missing", Err: fmt.Errorf("no such intent %q", id)}
	}
	intent.AmountMinor = amountMinor
	intent.Currency = currency
	f.intents[id] = intent
	return intent, nil
}

// SetStatus moves an intent as if the payer had acted on it.
func (f *Fake) SetStatus(id string, status paymentdomain.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent := f.intents[id]
	intent.Status = status
	f.intents[id] = intent
}

// FailNext makes the next calls of op return errs in order.
func (f *Fake) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

// Calls returns how many times op was invoked, failures included.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Fake) Intent(id string) (Intent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.intents[id]
	return intent, ok
}

func (f *Fake) begin(op string) error {
	f.calls[op]++
	queue := f.failures[op]
	if len(queue) == 0 {
		return nil
	}
	f.failures[op] = queue[1:]
	return queue[0]
}

var _ Gateway = (*Fake)(nil)
