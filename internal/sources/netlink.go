package sources

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"gamearbiter/internal/logging"
)

// netlinkMonitor listens for udev media-change events on one optical drive
// and calls wake so the disc poller probes immediately.
type netlinkMonitor struct {
	device string
	logger *slog.Logger
	wake   func()

	mu   sync.Mutex
	conn *netlink.UEventConn
	quit chan struct{}
	wg   sync.WaitGroup
}

func newNetlinkMonitor(device string, logger *slog.Logger, wake func()) *netlinkMonitor {
	return &netlinkMonitor{
		device: device,
		logger: logging.NewComponentLogger(logger, "netlink"),
		wake:   wake,
	}
}

// Start connects to the udev netlink socket. It reports false when the
// socket is unavailable; polling still works without it.
func (m *netlinkMonitor) Start(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		return true
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("netlink unavailable; disc detection falls back to polling",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon may open netlink sockets"),
			logging.String(logging.FieldImpact, "disc insertion is noticed on the next poll"),
		)
		return false
	}
	m.conn = conn
	m.quit = make(chan struct{})

	quit := m.quit
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.loop(ctx, conn, quit)
	}()
	m.logger.Debug("netlink monitor started", logging.String("device", m.device))
	return true
}

// Stop closes the socket and waits for the event loop.
func (m *netlinkMonitor) Stop() {
	m.mu.Lock()
	if m.conn == nil {
		m.mu.Unlock()
		return
	}
	close(m.quit)
	_ = m.conn.Close()
	m.conn = nil
	m.quit = nil
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *netlinkMonitor) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, buildMatcher())
	defer close(monitorQuit)

	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case uevent := <-queue:
			m.handle(uevent)
		case err := <-errs:
			m.logger.Debug("netlink monitor error", logging.Error(err))
		}
	}
}

func (m *netlinkMonitor) handle(uevent netlink.UEvent) {
	devname := extractDeviceName(uevent)
	if devname == "" || devname != m.device {
		return
	}
	m.logger.Debug("media change",
		logging.String("action", string(uevent.Action)),
		logging.String("device", devname),
	)
	m.wake()
}

// buildMatcher matches optical media insertions and removals.
func buildMatcher() netlink.Matcher {
	action := "change|add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "block",
			"ID_CDROM":  "1",
		},
	})
	return rules
}

// extractDeviceName returns the /dev path for a uevent.
func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !filepath.IsAbs(devname) {
			return "/dev/" + devname
		}
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
