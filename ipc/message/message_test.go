package message

import (
	"testing"
	"time"

	"github.com/oxy-compositor/engine/ipc"
)

func TestMessagesCanBeReceived(t *testing.T) {
	inbox, outbox := New[int]()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			if err := outbox.Send(i); err != nil {
				t.Errorf("send: %v", err)
			}
		}
	}()
	<-done

	for i := 0; i < 5; i++ {
		msg, err := inbox.Wait()
		if err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
		if msg != i {
			t.Fatalf("expected %d, got %d", i, msg)
		}
	}
}

func TestTimeoutWorks(t *testing.T) {
	inbox, _ := New[int]()

	start := time.Now()
	_, err := inbox.WaitTimeout(50 * time.Millisecond)
	elapsed := time.Since(start)

	if !ipc.IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if elapsed < 50*time.Millisecond {
		t.Fatalf("returned before deadline: %s", elapsed)
	}
}

func TestCheckWorks(t *testing.T) {
	inbox, outbox := New[string]()

	if _, ok, err := inbox.Check(); ok || err != nil {
		t.Fatalf("expected empty check, got ok=%v err=%v", ok, err)
	}

	if err := outbox.Send("hello"); err != nil {
		t.Fatalf("send: %v", err)
	}

	msg, ok, err := inbox.Check()
	if !ok || err != nil {
		t.Fatalf("expected a message, got ok=%v err=%v", ok, err)
	}
	if msg != "hello" {
		t.Fatalf("expected hello, got %q", msg)
	}
}

func TestLotsOfMessagesAreOk(t *testing.T) {
	inbox, outbox := WithCapacity[int](1000)

	go func() {
		for i := 0; i < 1000; i++ {
			_ = outbox.Send(i)
		}
		outbox.Close()
	}()

	all, err := inbox.WaitAll()
	if err != nil {
		t.Fatalf("waitAll: %v", err)
	}

	received := append([]int{}, all...)
	for len(received) < 1000 {
		more, err := inbox.WaitAll()
		if err != nil {
			break
		}
		received = append(received, more...)
	}

	if len(received) != 1000 {
		t.Fatalf("expected 1000 messages, got %d", len(received))
	}
	for i, v := range received {
		if v != i {
			t.Fatalf("expected message %d to be %d, got %d", i, i, v)
		}
	}
}

func TestEarlyInboxCloseIsFine(t *testing.T) {
	inbox, outbox := New[int]()
	inbox.Close()

	if err := outbox.Send(1); err != ipc.ErrConnectionDropped {
		t.Fatalf("expected ErrConnectionDropped, got %v", err)
	}
}

func TestEarlyOutboxCloseIsFine(t *testing.T) {
	inbox, outbox := New[int]()
	outbox.Close()

	if _, err := inbox.Wait(); err != ipc.ErrConnectionDropped {
		t.Fatalf("expected ErrConnectionDropped, got %v", err)
	}

	// closing more than once must not panic or double-broadcast badly.
	outbox.Close()
}

func TestWithStartingMessages(t *testing.T) {
	inbox, _ := WithStartingMessages([]int{1, 2, 3})

	for _, want := range []int{1, 2, 3} {
		got, _, err := inbox.Check()
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}
