package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/corphub/events-api/internal/core/domain"
	"github.com/corphub/events-api/internal/core/ports"
	"github.com/corphub/events-api/internal/infrastructure/queue"
)

const (
	concurrentAdds     = 40
	concurrentCapacity = 7
)

// runConcurrentAdds fires concurrentAdds distinct additions at one event and
// returns the number of successes and the error tally.
func runConcurrentAdds(t *testing.T, serializer ports.Serializer) (*membershipFixture, string, int, map[domain.ErrorKind]int) {
	t.Helper()
	f := newMembershipFixture(GuestPolicyOpen, serializer)
	id := f.events.seed(f.owner.ID, concurrentCapacity)
	for i := range concurrentAdds {
		f.users.seed(fmt.Sprintf("user %d", i), fmt.Sprintf("user%d@corp.test", i))
	}
	// Widen the window between read and write so races actually happen.
	f.events.beforeUpdate = runtime.Gosched

	var (
		mu        sync.Mutex
		successes int
		kinds     = map[domain.ErrorKind]int{}
		wg        sync.WaitGroup
	)
	for i := range concurrentAdds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddAttendee(context.Background(), principal(f.owner), id, fmt.Sprintf("user%d@corp.test", i))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			kinds[domain.KindOf(err)]++
		}()
	}
	wg.Wait()
	return f, id, successes, kinds
}

func TestConcurrentAddAttendee_Dispatcher_ExactlyCapacity(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := queue.NewDispatcher(4, zerolog.Nop())
	d.Start(ctx)

	f, id, successes, kinds := runConcurrentAdds(t, d)

	if successes != concurrentCapacity {
		t.Fatalf("expected exactly %d successes, got %d (errors %v)", concurrentCapacity, successes, kinds)
	}
	if kinds[domain.KindCapacityExceeded] != concurrentAdds-concurrentCapacity {
		t.Fatalf("every loser must see capacity_exceeded, got %v", kinds)
	}
	if n := len(f.events.get(id).Attendees); n != concurrentCapacity {
		t.Fatalf("stored attendee count %d, want %d", n, concurrentCapacity)
	}
}

func TestConcurrentAddAttendee_VersionCheckOnly_NeverExceedsCapacity(t *testing.T) {
	f, id, successes, kinds := runConcurrentAdds(t, passSerializer{})

	stored := len(f.events.get(id).Attendees)
	if stored > concurrentCapacity {
		t.Fatalf("stored attendee count %d exceeds capacity %d", stored, concurrentCapacity)
	}
	if successes != stored {
		t.Fatalf("%d calls reported success but %d attendees are stored", successes, stored)
	}
	for kind := range kinds {
		if kind != domain.KindStale && kind != domain.KindCapacityExceeded {
			t.Fatalf("unexpected error kind %q (%v)", kind, kinds)
		}
	}
}

func TestConcurrentAddGuest_AllLinked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := queue.NewDispatcher(2, zerolog.Nop())
	d.Start(ctx)

	f := newMembershipFixture(GuestPolicyOpen, d)
	id := f.events.seed(f.owner.ID, 1)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddGuest(context.Background(), principal(f.owner), id, ports.GuestInput{
				Name:  fmt.Sprintf("guest %d", i),
				Email: fmt.Sprintf("g%d@partner.test", i),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil && !errors.Is(err, domain.ErrStaleEvent) {
			t.Fatalf("AddGuest: %v", err)
		}
	}
	if got := len(f.events.get(id).Guests); got != 20 {
		t.Fatalf("expected 20 linked guests, got %d", got)
	}
}

func TestAddGuest_SlowInvitationDoesNotHoldOtherWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := queue.NewDispatcher(1, zerolog.Nop())
	d.Start(ctx)

	f := newMembershipFixture(GuestPolicyOpen, d)
	eventA := f.events.seed(f.owner.ID, 5)
	eventB := f.events.seed(f.owner.ID, 5)
	f.users.seed("Bob", "bob@corp.test")

	notifier := newBlockingNotifier()
	svc := NewMembershipService(MembershipDeps{
		Events:     f.events,
		Users:      f.users,
		Guests:     f.guests,
		Serializer: d,
		Notifier:   notifier,
	}, zerolog.Nop())

	added := make(chan error, 1)
	go func() {
		_, err := svc.AddGuest(context.Background(), principal(f.owner), eventA, ports.GuestInput{Name: "Vic", Email: "vic@partner.test"})
		added <- err
	}()
	select {
	case <-notifier.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("invitation was never sent")
	}

	reqCtx, reqCancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer reqCancel()
	if _, err := svc.AddAttendee(reqCtx, principal(f.owner), eventB, "bob@corp.test"); err != nil {
		t.Fatalf("AddAttendee on another event while an invitation is in flight: %v", err)
	}

	close(notifier.release)
	if err := <-added; err != nil {
		t.Fatalf("AddGuest: %v", err)
	}
	if got := len(f.events.get(eventA).Guests); got != 1 {
		t.Fatalf("expected one linked guest, got %d", got)
	}
}

func TestAddGuest_InvitationIsBounded(t *testing.T) {
	f := newMembershipFixture(GuestPolicyOpen, nil)
	id := f.events.seed(f.owner.ID, 5)

	svc := NewMembershipService(MembershipDeps{
		Events:        f.events,
		Users:         f.users,
		Guests:        f.guests,
		Serializer:    passSerializer{},
		Notifier:      newBlockingNotifier(),
		NotifyTimeout: 20 * time.Millisecond,
	}, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := svc.AddGuest(context.Background(), principal(f.owner), id, ports.GuestInput{Name: "Vic", Email: "vic@partner.test"})
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("AddGuest: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("AddGuest blocked on a send that never finishes")
	}
}
