package request

import (
	"testing"
	"time"

	"github.com/oxy-compositor/engine/ipc"
)

func TestRequestRespondWorks(t *testing.T) {
	server, client := New[string, int]()

	done := make(chan struct{})
	go func() {
		defer close(done)
		rr, err := server.Wait()
		if err != nil {
			t.Errorf("server wait: %v", err)
			return
		}
		if rr.Request != "how many?" {
			t.Errorf("unexpected request: %q", rr.Request)
		}
		rr.Response.Respond(42)
	}()

	waiter, err := client.Request("how many?")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	answer, err := waiter.Wait()
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if answer != 42 {
		t.Fatalf("expected 42, got %d", answer)
	}
	<-done
}

func TestServerTimeoutWorks(t *testing.T) {
	server, _ := New[string, int]()

	start := time.Now()
	_, err := server.WaitTimeout(50 * time.Millisecond)
	elapsed := time.Since(start)

	if !ipc.IsTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if elapsed < 50*time.Millisecond {
		t.Fatalf("returned before deadline: %s", elapsed)
	}
}

func TestEarlyResponseHandleCloseIsOk(t *testing.T) {
	server, client := New[string, int]()

	waiter, err := client.Request("ping")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	rr, err := server.Wait()
	if err != nil {
		t.Fatalf("server wait: %v", err)
	}
	rr.Response.Close()

	if _, err := waiter.Wait(); err != ipc.ErrConnectionDropped {
		t.Fatalf("expected ErrConnectionDropped, got %v", err)
	}
}

func TestAlertDoesNotExpectResponse(t *testing.T) {
	server, client := New[string, int]()

	if err := client.Alert("fire and forget"); err != nil {
		t.Fatalf("alert: %v", err)
	}

	rr, err := server.Wait()
	if err != nil {
		t.Fatalf("server wait: %v", err)
	}
	if rr.Response != nil {
		t.Fatalf("expected no response handle for an alert")
	}
}
