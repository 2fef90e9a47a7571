//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/mindwell/companion/internal/config"
	"github.com/mindwell/companion/internal/daemon"
	"github.com/mindwell/companion/internal/domain"
	"github.com/mindwell/companion/internal/shell"
	"github.com/mindwell/companion/internal/store"
)

// fakeShell dials the daemon's socket and speaks the JSON-lines protocol
// the way the desktop shell does.
type fakeShell struct {
	conn net.Conn

	mu       sync.Mutex
	received []map[string]json.RawMessage
}

func dialShell(socketPath string) *fakeShell {
	var conn net.Conn
	Eventually(func() error {
		var err error
		conn, err = net.Dial("unix", socketPath)
		return err
	}, 2*time.Second, 20*time.Millisecond).Should(Succeed())

	fs := &fakeShell{conn: conn}
	go fs.readLoop()
	return fs
}

func (f *fakeShell) readLoop() {
	dec := json.NewDecoder(f.conn)
	for {
		var msg map[string]json.RawMessage
		if err := dec.Decode(&msg); err != nil {
			return
		}
		f.mu.Lock()
		f.received = append(f.received, msg)
		f.mu.Unlock()
	}
}

func (f *fakeShell) send(msg map[string]any) {
	raw, err := json.Marshal(msg)
	Expect(err).NotTo(HaveOccurred())
	_, err = f.conn.Write(append(raw, '\n'))
	Expect(err).NotTo(HaveOccurred())
}

func (f *fakeShell) sendWindow(title, owner string) {
	f.send(map[string]any{
		"event":  domain.EventActiveWindowChanged,
		"window": map[string]any{"title": title, "ownerName": owner},
	})
}

func (f *fakeShell) countChannel(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, msg := range f.received {
		var ch string
		if raw, ok := msg["channel"]; ok {
			_ = json.Unmarshal(raw, &ch)
			if ch == name {
				n++
			}
		}
	}
	return n
}

var _ = Describe("Focus flow", func() {
	var (
		tmpDir string
		runner *daemon.Runner
		bridge *shell.SocketBridge
		ui     *fakeShell
		cancel context.CancelFunc
		done   chan struct{}
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "mindwell-integration-*")
		Expect(err).NotTo(HaveOccurred())

		logger := zap.NewNop()
		cfg := config.Default()
		cfg.DataDir = tmpDir
		cfg.DefaultUser = "frank"
		cfg.ShellSocket = filepath.Join(tmpDir, "shell.sock")
		cfg.ListenAddr = ""

		fileStore, err := store.NewFileStore(cfg.DataDir, logger)
		Expect(err).NotTo(HaveOccurred())

		bridge, err = shell.NewSocketBridge(cfg.ShellSocket, logger)
		Expect(err).NotTo(HaveOccurred())

		runner = daemon.New(cfg, fileStore, bridge, passthroughResolver{},
			countingNotifier{}, logger)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan struct{})
		go func() {
			defer close(done)
			_ = runner.Run(ctx)
		}()

		ui = dialShell(cfg.ShellSocket)
		Eventually(bridge.Available, 2*time.Second, 20*time.Millisecond).Should(BeTrue())
	})

	AfterEach(func() {
		cancel()
		<-done
		bridge.Close()
		os.RemoveAll(tmpDir)
	})

	Describe("block transitions", func() {
		Context("when focus mode is on and a non-whitelisted app gains focus", func() {
			It("shows exactly one popup and clears it on dismissal", func() {
				runner.AddWhitelist("Visual Studio Code")
				snap := runner.ToggleFocus()
				Expect(snap.FocusModeActive).To(BeTrue())

				ui.sendWindow("main.go - Visual Studio Code", "Visual Studio Code")
				ui.sendWindow("general - Slack", "Slack")

				Eventually(func() int {
					return ui.countChannel(domain.ChanShowFocusPopup)
				}, 2*time.Second, 20*time.Millisecond).Should(Equal(1))

				Eventually(func() bool {
					return runner.Session().AlertShowing
				}, 2*time.Second, 20*time.Millisecond).Should(BeTrue())

				// Returning to an allowed app then straight back inside the
				// cooldown window must not produce a second popup.
				ui.sendWindow("main.go - Visual Studio Code", "Visual Studio Code")
				ui.sendWindow("general - Slack", "Slack")
				Consistently(func() int {
					return ui.countChannel(domain.ChanShowFocusPopup)
				}, 500*time.Millisecond, 50*time.Millisecond).Should(Equal(1))
			})
		})

		Context("when the blocked app is whitelisted while its popup shows", func() {
			It("clears the popup", func() {
				runner.AddWhitelist("Visual Studio Code")
				runner.ToggleFocus()

				ui.sendWindow("main.go - Visual Studio Code", "Visual Studio Code")
				ui.sendWindow("general - Slack", "Slack")
				Eventually(func() bool {
					return runner.Session().AlertShowing
				}, 2*time.Second, 20*time.Millisecond).Should(BeTrue())

				runner.AddWhitelist("Slack")
				Expect(runner.Session().AlertShowing).To(BeFalse())
			})
		})
	})

	Describe("settings persistence", func() {
		It("survives a daemon restart within the same data dir", func() {
			runner.AddWhitelist("Obsidian")
			snap := runner.ToggleFocus()
			Expect(snap.FocusModeActive).To(BeTrue())

			logger := zap.NewNop()
			fileStore, err := store.NewFileStore(tmpDir, logger)
			Expect(err).NotTo(HaveOccurred())
			rec, err := fileStore.Load("frank")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Whitelist).To(ContainElement("Obsidian"))
			Expect(rec.FocusModeEnabled).To(BeTrue())
		})
	})
})

type passthroughResolver struct{}

func (passthroughResolver) Resolve(d domain.WindowDescriptor) domain.WindowDescriptor { return d }

type countingNotifier struct{}

func (countingNotifier) Notify(domain.Notification) error { return nil }
