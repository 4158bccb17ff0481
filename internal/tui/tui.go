package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jroimartin/gocui"

	"github.com/Smomic/ChatRoom/internal/protocol"
)

const (
	viewMessages = "messages"
	viewUsers    = "users"
	viewStatus   = "status"
	viewInput    = "input"
)

// UI is the terminal front end for the chat client. It implements the
// reconciler's View interface; all rendering goes through gui.Update so
// snapshots may arrive from any goroutine.
type UI struct {
	gui *gocui.Gui

	onSubmit func(string)
	onQuit   func()

	closeOnce sync.Once
}

func New() (*UI, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}
	g.Cursor = true
	ui := &UI{gui: g}
	g.SetManagerFunc(ui.layout)
	return ui, nil
}

// OnSubmit registers the handler for lines entered in the input view.
func (ui *UI) OnSubmit(fn func(string)) { ui.onSubmit = fn }

// OnQuit registers the handler invoked before the UI exits.
func (ui *UI) OnQuit(fn func()) { ui.onQuit = fn }

// Run blocks in the terminal main loop until quit.
func (ui *UI) Run() error {
	defer ui.Close()
	if err := ui.keybindings(); err != nil {
		return err
	}
	if err := ui.gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

func (ui *UI) Close() {
	ui.closeOnce.Do(func() {
		ui.gui.Close()
	})
}

func (ui *UI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	sidebarWidth := 20
	msgWidth := maxX - sidebarWidth - 1
	msgHeight := maxY - 5

	if v, err := g.SetView(viewMessages, 0, 0, msgWidth, msgHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Messages"
		v.Wrap = true
		v.Autoscroll = true
	}

	if v, err := g.SetView(viewUsers, msgWidth+1, 0, maxX-1, msgHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Online Users"
		v.Wrap = true
	}

	if v, err := g.SetView(viewStatus, 0, msgHeight+1, maxX-1, msgHeight+3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
		v.Wrap = true
		fmt.Fprint(v, "connecting | Ctrl-C: quit")
	}

	if v, err := g.SetView(viewInput, 0, msgHeight+3, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Input"
		v.Editable = true
		v.Wrap = true
		if _, err := g.SetCurrentView(viewInput); err != nil {
			return err
		}
	}

	return nil
}

func (ui *UI) keybindings() error {
	if err := ui.gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, ui.quit); err != nil {
		return err
	}
	if err := ui.gui.SetKeybinding(viewInput, gocui.KeyEnter, gocui.ModNone, ui.submit); err != nil {
		return err
	}
	return nil
}

func (ui *UI) submit(g *gocui.Gui, v *gocui.View) error {
	line := strings.TrimSpace(v.Buffer())
	v.Clear()
	if err := v.SetCursor(0, 0); err != nil {
		return err
	}
	if line != "" && ui.onSubmit != nil {
		ui.onSubmit(line)
	}
	return nil
}

func (ui *UI) quit(g *gocui.Gui, v *gocui.View) error {
	if ui.onQuit != nil {
		ui.onQuit()
	}
	return gocui.ErrQuit
}

// ApplySnapshot appends the snapshot's messages, replaces the user list
// and reflects the status in the status line.
func (ui *UI) ApplySnapshot(st protocol.ChatState) {
	ui.gui.Update(func(g *gocui.Gui) error {
		if v, err := g.View(viewMessages); err == nil {
			for _, m := range st.Messages {
				fmt.Fprintf(v, "[%s] %s: %s\n", m.SentAt.Format("15:04:05"), m.Author, m.Content)
			}
		}
		if v, err := g.View(viewUsers); err == nil {
			v.Clear()
			for _, name := range st.Users {
				fmt.Fprintln(v, name)
			}
		}
		if v, err := g.View(viewStatus); err == nil {
			v.Clear()
			fmt.Fprintf(v, "%s | %d online | Ctrl-C: quit", statusLine(st.Status), len(st.Users))
		}
		return nil
	})
}

// SetDisconnected is called once when the transport dies.
func (ui *UI) SetDisconnected() {
	ui.gui.Update(func(g *gocui.Gui) error {
		if v, err := g.View(viewStatus); err == nil {
			v.Clear()
			fmt.Fprint(v, "disconnected from server | Ctrl-C: quit")
		}
		return nil
	})
}

func statusLine(s protocol.Status) string {
	switch s {
	case protocol.StatusLoggedIn:
		return "logged in"
	case protocol.StatusWorking:
		return "connected"
	case protocol.StatusLoggedOut:
		return "logged out"
	case protocol.StatusMessageRejected:
		return "message rejected, resyncing"
	case protocol.StatusUsernameRejected:
		return "username rejected"
	default:
		return "rejected by server"
	}
}
