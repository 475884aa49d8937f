package chromectl

import (
	"net"
	"strings"
	"testing"
)

func TestScrapeDebugURLFindsListeningLine(t *testing.T) {
	const stderr = `[0731/120000.000000:INFO:CONSOLE] some unrelated log line
DevTools listening on ws://127.0.0.1:8123/devtools/browser/abcd-1234
[0731/120000.000000:INFO:CONSOLE] another line after
`
	url, err := scrapeDebugURL(strings.NewReader(stderr))
	if err != nil {
		t.Fatalf("scrapeDebugURL: %v", err)
	}
	if url != "ws://127.0.0.1:8123/devtools/browser/abcd-1234" {
		t.Fatalf("got %q", url)
	}
}

func TestScrapeDebugURLDetectsPortInUse(t *testing.T) {
	const stderr = `[0731/120000.000000:ERROR:socket.cc] bind() returned an error, errno=98
`
	_, err := scrapeDebugURL(strings.NewReader(stderr))
	if err != ErrDebugPortInUse {
		t.Fatalf("got %v, want ErrDebugPortInUse", err)
	}
}

func TestScrapeDebugURLDetectsAddressAlreadyInUse(t *testing.T) {
	const stderr = `Address already in use
`
	_, err := scrapeDebugURL(strings.NewReader(stderr))
	if err != ErrDebugPortInUse {
		t.Fatalf("got %v, want ErrDebugPortInUse", err)
	}
}

func TestScrapeDebugURLReturnsErrorOnEOFWithoutURL(t *testing.T) {
	const stderr = `some early startup noise
more noise, then the process exits
`
	_, err := scrapeDebugURL(strings.NewReader(stderr))
	if err == nil {
		t.Fatal("expected an error when stderr ends without a listening line")
	}
	if err == ErrDebugPortInUse {
		t.Fatal("unrelated EOF should not be reported as a port conflict")
	}
}

func TestChoosePortSkipsAlreadyBoundPorts(t *testing.T) {
	// Bind the very first candidate port in the range so choosePort must
	// skip past it.
	ln, err := net.Listen("tcp", "127.0.0.1:8000")
	if err != nil {
		t.Skipf("could not bind 127.0.0.1:8000 in this environment: %v", err)
	}
	defer ln.Close()

	port, err := choosePort()
	if err != nil {
		t.Fatalf("choosePort: %v", err)
	}
	if port == 8000 {
		t.Fatal("choosePort returned a port already held by another listener")
	}
	if port < debugPortRangeLow || port >= debugPortRangeHigh {
		t.Fatalf("got port %d outside [%d,%d)", port, debugPortRangeLow, debugPortRangeHigh)
	}
}
