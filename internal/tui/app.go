package tui

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/wppdesk/internal/rpc"
	"github.com/matheus3301/wppdesk/internal/tui/keys"
	"github.com/matheus3301/wppdesk/internal/tui/model"
	"github.com/matheus3301/wppdesk/internal/tui/ui"
	"github.com/matheus3301/wppdesk/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	pageConversations = "conversations"
	pageChat          = "chat"
	pagePairing       = "pairing"
)

// App is the main TUI application shell.
type App struct {
	app       *tview.Application
	pages     *tview.Pages
	vm        *model.ViewModel
	rpc       *rpc.Client
	registry  *keys.Registry
	statusBar *views.StatusBar
	convList  *views.ConversationList
	msgView   *views.MessageView
	composer  *views.Composer
	pairing   *views.PairingView
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c *rpc.Client, sessionName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		vm:        model.NewViewModel(c),
		rpc:       c,
		registry:  keys.NewRegistry(),
		statusBar: views.NewStatusBar(theme),
		convList:  views.NewConversationList(theme),
		msgView:   views.NewMessageView(theme),
		composer:  views.NewComposer(),
		pairing:   views.NewPairingView(theme),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetSession(sessionName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: a.Stop,
	})
	a.registry.AddView(pageConversations, "open", &keys.Action{
		Key:         tcell.KeyEnter,
		Description: "enter:open", Visible: true,
		Handler: func() { a.openConversation(a.convList.Selected()) },
	})
	for _, page := range []string{pageConversations, pageChat} {
		a.registry.AddView(page, "read", &keys.Action{
			Rune: 'r', Key: tcell.KeyRune,
			Description: "r:read", Visible: true,
			Handler: func() { a.markRead(a.focusedPeer()) },
		})
		a.registry.AddView(page, "workflow", &keys.Action{
			Rune: 'w', Key: tcell.KeyRune,
			Description: "w:workflow", Visible: true,
			Handler: func() { a.cycleWorkflow(a.focusedPeer()) },
		})
	}
	a.registry.AddView(pageChat, "compose", &keys.Action{
		Rune: 'i', Key: tcell.KeyRune,
		Description: "i:write", Visible: true,
		Handler: func() { a.app.SetFocus(a.composer) },
	})
}

func (a *App) setupCallbacks() {
	a.composer.SetOnSend(func(text string) {
		peer := a.vm.GetActivePeer()
		if peer == "" {
			return
		}
		a.async(func(ctx context.Context) {
			if err := a.vm.SendText(ctx, peer, text); err != nil {
				a.vm.Flash.Fail("Send", err)
			}
			a.reloadActive(ctx)
		})
	})

	a.composer.SetOnCommand(func(line string) {
		peer := a.vm.GetActivePeer()
		if peer == "" {
			return
		}
		cmd, err := ParseCommand(line)
		if err != nil {
			a.vm.Flash.Fail("Command", err)
			a.redrawStatus()
			return
		}
		switch cmd.Name {
		case "read":
			a.markRead(peer)
		case "workflow":
			if cmd.Arg == "" {
				a.cycleWorkflow(peer)
				return
			}
			a.async(func(ctx context.Context) {
				if err := a.vm.SetWorkflow(ctx, peer, cmd.Arg); err != nil {
					a.vm.Flash.Fail("Workflow", err)
					return
				}
				a.vm.Flash.Info("Workflow: %s", cmd.Arg)
			})
		case "retry":
			a.async(func(ctx context.Context) {
				if err := a.vm.Retry(ctx, peer, cmd.Arg); err != nil {
					a.vm.Flash.Fail("Retry", err)
				}
				a.reloadActive(ctx)
			})
		}
	})
}

func (a *App) setupLayout() {
	chatFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.msgView, 0, 1, false).
		AddItem(a.composer, 1, 0, false)

	a.pages.AddPage(pageConversations, a.convList, true, true)
	a.pages.AddPage(pageChat, chatFlex, true, false)
	a.pages.AddPage(pagePairing, a.pairing, true, false)
	a.statusBar.SetHints(a.registry.Hints(pageConversations))

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape {
			if a.app.GetFocus() == a.composer.InputField {
				a.app.SetFocus(a.msgView)
				return nil
			}
			if currentPage == pageChat {
				a.vm.CloseConversation()
				a.switchTo(pageConversations)
				return nil
			}
		}

		// Let text input widgets handle all keys normally.
		if _, ok := a.app.GetFocus().(*tview.InputField); ok {
			return event
		}

		if a.registry.HandleEvent(currentPage, event) {
			return nil
		}
		return event
	})
}

func (a *App) switchTo(page string) {
	a.pages.SwitchToPage(page)
	a.statusBar.SetHints(a.registry.Hints(page))
	switch page {
	case pageConversations:
		a.convList.Update(a.vm.GetConversations())
		a.app.SetFocus(a.convList)
	case pageChat:
		a.app.SetFocus(a.msgView)
	}
}

// focusedPeer is the open conversation, or the one under the cursor.
func (a *App) focusedPeer() string {
	if peer := a.vm.GetActivePeer(); peer != "" {
		return peer
	}
	return a.convList.Selected()
}

// async runs fn off the UI goroutine and redraws once it returns.
func (a *App) async(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, 30*time.Second)
		defer cancel()
		fn(ctx)
		a.app.QueueUpdateDraw(a.redraw)
	}()
}

func (a *App) openConversation(peer string) {
	if peer == "" {
		return
	}
	a.async(func(ctx context.Context) {
		if err := a.vm.LoadMessages(ctx, peer); err != nil {
			a.vm.Flash.Fail("Load", err)
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.msgView.SetTitleName(a.vm.DisplayName(peer))
			a.switchTo(pageChat)
		})
	})
}

func (a *App) markRead(peer string) {
	if peer == "" {
		return
	}
	a.async(func(ctx context.Context) {
		n, err := a.vm.MarkRead(ctx, peer)
		if err != nil {
			a.vm.Flash.Fail("Mark read", err)
			return
		}
		a.vm.Flash.Info("%d marked read", n)
		_ = a.vm.LoadConversations(ctx)
	})
}

func (a *App) cycleWorkflow(peer string) {
	if peer == "" {
		return
	}
	a.async(func(ctx context.Context) {
		next, err := a.vm.CycleWorkflow(ctx, peer)
		if err != nil {
			a.vm.Flash.Fail("Workflow", err)
			return
		}
		a.vm.Flash.Info("Workflow: %s", next)
	})
}

func (a *App) reloadActive(ctx context.Context) {
	if peer := a.vm.GetActivePeer(); peer != "" {
		_ = a.vm.LoadMessages(ctx, peer)
	}
}

// redraw refreshes every view from the view model. Must run on the UI goroutine.
func (a *App) redraw() {
	currentPage, _ := a.pages.GetFrontPage()
	_, pairing := a.vm.GetSession()

	if pairing != nil && pairing.Token != "" {
		a.pairing.ShowQR(pairing.Token)
		if currentPage != pagePairing {
			a.switchTo(pagePairing)
			currentPage = pagePairing
		}
	} else if currentPage == pagePairing {
		a.switchTo(pageConversations)
		currentPage = pageConversations
	}

	switch currentPage {
	case pageConversations:
		a.convList.Update(a.vm.GetConversations())
	case pageChat:
		a.msgView.Update(a.vm.GetMessages())
	}
	a.redrawStatus()
}

func (a *App) redrawStatus() {
	ss, _ := a.vm.GetSession()
	unread := 0
	for _, c := range a.vm.GetConversations() {
		unread += c.Unread
	}
	if ss != nil {
		a.statusBar.SetStatus(ss.Status, unread)
	}
	a.statusBar.SetFlash(a.vm.Flash.Current())
}

func (a *App) loadAll(ctx context.Context) {
	if err := a.vm.LoadSessionStatus(ctx); err != nil {
		a.vm.Flash.Fail("Status", err)
	}
	if err := a.vm.LoadConversations(ctx); err != nil {
		a.vm.Flash.Fail("Load", err)
	}
	a.reloadActive(ctx)
}

// Run starts the TUI application.
func (a *App) Run() error {
	a.async(func(ctx context.Context) {
		a.loadAll(ctx)
		go a.watch()
		go a.tick()
	})
	return a.app.Run()
}

// watch reloads affected state whenever the daemon publishes an event,
// reconnecting the stream after errors until the app stops.
func (a *App) watch() {
	for a.ctx.Err() == nil {
		stream, err := a.rpc.Event.Watch(a.ctx, "")
		if err == nil {
			err = a.consume(stream)
		}
		if a.ctx.Err() != nil {
			return
		}
		if err != nil && err != io.EOF {
			a.vm.Flash.Fail("Event stream", err)
			a.app.QueueUpdateDraw(a.redrawStatus)
		}
		select {
		case <-a.ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (a *App) consume(stream rpc.EventStream) error {
	for {
		evt, err := stream.Recv()
		if err != nil {
			return err
		}
		a.async(func(ctx context.Context) {
			switch {
			case strings.HasPrefix(evt.Kind, "session."):
				_ = a.vm.LoadSessionStatus(ctx)
			case strings.HasPrefix(evt.Kind, "message."):
				_ = a.vm.LoadConversations(ctx)
				a.reloadActive(ctx)
			default:
				_ = a.vm.LoadConversations(ctx)
			}
		})
	}
}

// tick keeps the clock and flash message current.
func (a *App) tick() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.app.QueueUpdateDraw(a.redrawStatus)
		case <-a.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
