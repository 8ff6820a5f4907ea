// Package tui is the terminal front end of chatdev. It drives the sync
// engine with intents and renders the bus events it publishes.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/andrejr971/chat/internal/api"
	"github.com/andrejr971/chat/internal/bus"
	"github.com/andrejr971/chat/internal/chat"
	"github.com/andrejr971/chat/internal/outbox"
	"github.com/andrejr971/chat/internal/status"
	"github.com/andrejr971/chat/internal/store"
	intsync "github.com/andrejr971/chat/internal/sync"
	"github.com/andrejr971/chat/internal/tui/keys"
	"github.com/andrejr971/chat/internal/tui/model"
	"github.com/andrejr971/chat/internal/tui/ui"
	"github.com/andrejr971/chat/internal/tui/views"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

// Page names.
const (
	pageChats   = "chats"
	pageChat    = "chat"
	pageDetails = "details"
	pageSearch  = "search"
	pageHelp    = "help"
)

const (
	chatListLimit = 200
	searchLimit   = 50
	requestTime   = 10 * time.Second
)

// Engine is the sync loop the UI drives.
type Engine interface {
	Post(ev any)
	Snapshot(ctx context.Context) (intsync.Snapshot, error)
}

// Store is the local cache the UI reads.
type Store interface {
	ListChats(limit, offset int) ([]chat.Summary, error)
	GetChat(id string) (*chat.Summary, error)
	UpsertChat(s *chat.Summary) error
	SearchMessages(query, chatID string, limit int) ([]store.SearchResult, error)
}

// Directory is the REST side of the server.
type Directory interface {
	ListMyChats(ctx context.Context, userID string) ([]api.Chat, error)
	GetChat(ctx context.Context, chatID string) (*api.Chat, error)
	ListMembers(ctx context.Context, chatID string) ([]api.User, error)
	JoinChat(ctx context.Context, chatID, userID string) error
	CreateChat(ctx context.Context, name, userID string) (*api.Chat, error)
}

// Deps are the collaborators of the UI.
type Deps struct {
	Engine    Engine
	Store     Store
	Directory Directory
	Bus       *bus.Bus
	Logger    *zap.Logger
	Profile   string
	Server    string
	Self      chat.Identity
	// OpenChat is opened right after start when set.
	OpenChat string
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	root     *tview.Flex
	pages    *ui.Pages
	info     *ui.ProfileInfo
	menu     *ui.Menu
	crumbs   *ui.Crumbs
	flash    *ui.FlashModel
	flashBar *ui.FlashBar
	prompt   *ui.Prompt
	registry *keys.Registry
	vm       *model.ViewModel

	chatList *views.ConversationList
	thread   *views.MessageThread
	details  *views.ChatInfo
	search   *views.SearchView
	help     *views.HelpView

	d         Deps
	logger    *zap.Logger
	surface   *surface
	prompting bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(d Deps) *App {
	ctx, cancel := context.WithCancel(context.Background())
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		pages:    ui.NewPages(),
		info:     ui.NewProfileInfo(theme),
		menu:     ui.NewMenu(theme, 6),
		crumbs:   ui.NewCrumbs(theme),
		flash:    ui.NewFlashModel(),
		flashBar: ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		registry: keys.NewRegistry(),
		vm:       model.NewViewModel(),
		chatList: views.NewConversationList(theme),
		thread:   views.NewMessageThread(theme, d.Self.UserID),
		details:  views.NewChatInfo(theme),
		search:   views.NewSearchView(theme),
		help:     views.NewHelpView(theme),
		d:        d,
		logger:   logger.Named("tui"),
		ctx:      ctx,
		cancel:   cancel,
	}
	a.surface = newSurface(func(visible bool) {
		a.logger.Debug("chat visibility", zap.Bool("visible", visible))
		d.Engine.Post(intsync.VisibilityChanged{Visible: visible})
	})

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Label: ":", Help: "Command",
		Handler: func() { a.activatePrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Label: "?", Help: "Help",
		Handler: func() { a.pushPage(pageHelp) },
	})

	a.registry.AddPage(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Label: "/", Help: "Filter",
		Handler: func() { a.activatePrompt(ui.PromptFilter) },
	})
	a.registry.AddPage(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: 'r', Label: "r", Help: "Refresh",
		Handler: func() { go a.syncChats() },
	})
	a.registry.AddPage(pageChats, &keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Label: "q", Help: "Quit",
		Handler: func() { a.app.Stop() },
	})
	for n := 1; n <= 9; n++ {
		label := ""
		if n == 1 {
			label = "1-9"
		}
		a.registry.AddPage(pageChats, &keys.Action{
			Key: tcell.KeyRune, Rune: rune('0' + n), Label: label, Help: "Jump",
			Handler: func() { a.openChat(a.chatList.ChatByIndex(n)) },
		})
	}

	a.registry.AddPage(pageChat, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i', Label: "i", Help: "Compose",
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddPage(pageChat, &keys.Action{
		Key: tcell.KeyRune, Rune: 'd', Label: "d", Help: "Details",
		Handler: a.showDetails,
	})

	a.registry.AddPage(pageSearch, &keys.Action{
		Key: tcell.KeyTab, Label: "Tab", Help: "Results",
		Handler: func() { a.app.SetFocus(a.search.Results()) },
	})
}

func (a *App) setupCallbacks() {
	a.chatList.SetSelectedFunc(func(row, _ int) {
		a.openChat(a.chatList.ChatByIndex(row))
	})

	a.thread.SetOnSend(func(text string) {
		a.d.Engine.Post(intsync.SendIntent{Content: text})
	})

	a.search.SetOnQuery(func(q string) { go a.runSearch(q) })
	a.search.SetOnOpen(a.openChat)

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.closePrompt()
		if mode == ui.PromptFilter {
			a.chatList.SetFilter(text)
			return
		}
		a.runCommand(ParseCommand(text))
	})
	a.prompt.SetOnCancel(a.closePrompt)

	a.pages.SetOnChange(a.pagesChanged)
}

func (a *App) setupLayout() {
	a.pages.AddPage(pageChats, a.chatList, true, false)
	a.pages.AddPage(pageChat, a.thread, true, false)
	a.pages.AddPage(pageDetails, a.details, true, false)
	a.pages.AddPage(pageSearch, a.search, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)

	header := tview.NewFlex().
		AddItem(a.info, 40, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 16, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 6, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)
	a.root.SetBackgroundColor(a.theme.BgColor)

	a.app.SetRoot(a.root, true)
	a.app.SetInputCapture(a.capture)
}

func (a *App) capture(ev *tcell.EventKey) *tcell.EventKey {
	if a.prompting {
		return ev
	}
	page := a.pages.Current()
	if _, ok := a.app.GetFocus().(*tview.InputField); ok {
		if ev.Key() != tcell.KeyEscape {
			return ev
		}
		if page == pageChat {
			a.app.SetFocus(a.thread.Messages())
		} else {
			a.back()
		}
		return nil
	}
	if ev.Key() == tcell.KeyEscape {
		a.back()
		return nil
	}
	if a.registry.HandleEvent(page, ev) {
		return nil
	}
	return ev
}

// pagesChanged keeps chrome and visibility in step with the page stack.
// The chat counts as seen only while its page is in front of a focused
// terminal.
func (a *App) pagesChanged(stack []string) {
	labels := make([]string, 0, len(stack))
	for _, name := range stack {
		labels = append(labels, a.component(name).Name())
	}
	a.crumbs.Update(labels)

	top := stack[len(stack)-1]
	a.menu.Update(append(a.component(top).Hints(), a.registry.Hints(top)...))
	a.app.SetFocus(a.focusTarget(top))

	a.surface.setInFront(top == pageChat)
}

func (a *App) component(page string) ui.Component {
	switch page {
	case pageChat:
		return a.thread
	case pageDetails:
		return a.details
	case pageSearch:
		return a.search
	case pageHelp:
		return a.help
	default:
		return a.chatList
	}
}

func (a *App) focusTarget(page string) tview.Primitive {
	switch page {
	case pageChat:
		return a.thread.Composer()
	case pageSearch:
		return a.search.Input()
	default:
		return a.component(page).(tview.Primitive)
	}
}

func (a *App) pushPage(name string) {
	a.pages.Push(name)
}

func (a *App) back() {
	a.pages.Pop()
}

func (a *App) activatePrompt(mode ui.PromptMode) {
	a.prompting = true
	a.prompt.Activate(mode)
	if mode == ui.PromptFilter {
		a.prompt.SetText(a.chatList.Filter())
	}
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) closePrompt() {
	a.prompting = false
	a.root.ResizeItem(a.prompt, 0, 0)
	a.app.SetFocus(a.focusTarget(a.pages.Current()))
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "":
	case "open":
		a.openChat(cmd.Args)
	case "join":
		go a.joinChat(cmd.Args)
	case "new":
		go a.createChat(cmd.Args)
	case "search":
		a.pushPage(pageSearch)
		a.search.SetQuery(cmd.Args)
		if cmd.Args != "" {
			go a.runSearch(cmd.Args)
		}
	case "details":
		a.showDetails()
	case "reconnect":
		if id := a.vm.ChatID(); id != "" {
			a.d.Engine.Post(intsync.ConnectIntent{ChatID: id})
		} else {
			a.flash.Warn(intsync.NoticeNoChat)
		}
	case "disconnect":
		a.d.Engine.Post(intsync.DisconnectIntent{})
		a.pages.Reset(pageChats)
	case "refresh":
		go a.syncChats()
	case "help":
		a.pushPage(pageHelp)
	case "quit":
		a.app.Stop()
	default:
		a.flash.Warn("Unknown command: " + cmd.Name)
	}
}

// openChat shows id, binding the engine to it unless it already is.
func (a *App) openChat(id string) {
	if id == "" {
		return
	}
	if id != a.vm.ChatID() {
		a.d.Engine.Post(intsync.ConnectIntent{ChatID: id})
		a.thread.Update(nil)
	}
	_, online := a.vm.State()
	a.thread.SetChat(a.chatName(id), online && id == a.vm.ChatID())
	a.pushPage(pageChat)

	if _, known := a.chatList.Lookup(id); !known {
		go a.fetchChat(id)
	}
}

func (a *App) chatName(id string) string {
	if s, ok := a.chatList.Lookup(id); ok && s.Name != "" {
		return s.Name
	}
	return id
}

func (a *App) showDetails() {
	id := a.vm.ChatID()
	if id == "" {
		a.flash.Warn(intsync.NoticeNoChat)
		return
	}
	s, err := a.d.Store.GetChat(id)
	if err != nil || s == nil {
		s = &chat.Summary{ID: id}
	}
	a.details.Update(*s, nil)
	a.pushPage(pageDetails)

	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, requestTime)
		defer cancel()
		users, err := a.d.Directory.ListMembers(ctx, id)
		if err != nil {
			a.logger.Warn("failed to list members", zap.String("chat_id", id), zap.Error(err))
			a.flash.Err("Could not load members: " + err.Error())
			return
		}
		members := make([]views.Member, 0, len(users))
		for _, u := range users {
			members = append(members, views.Member{ID: u.ID, Username: u.Username})
		}
		a.app.QueueUpdateDraw(func() { a.details.Update(*s, members) })
	}()
}

// Run starts the TUI and blocks until the user quits.
func (a *App) Run() error {
	a.pages.Reset(pageChats)
	a.watchBus()
	a.watchFlash()

	go func() {
		a.loadLocalChats()
		a.app.QueueUpdateDraw(func() { a.render(model.ChangeChats | model.ChangeState) })
		a.syncChats()
	}()
	if a.d.OpenChat != "" {
		a.openChat(a.d.OpenChat)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		a.cancel()
		return fmt.Errorf("open terminal: %w", err)
	}
	a.app.SetScreen(newFocusScreen(screen, a.surface.setFocused))

	defer a.cancel()
	return a.app.Run()
}

// Stop shuts the TUI down.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

func (a *App) watchBus() {
	events, unsub := a.d.Bus.Subscribe("", 256)
	go func() {
		defer unsub()
		for {
			select {
			case <-a.ctx.Done():
				return
			case evt := <-events:
				a.handleEvent(evt)
			}
		}
	}()
}

func (a *App) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.ChatNotice:
		if n, ok := evt.Payload.(intsync.Notice); ok {
			a.flash.Warn(n.Text)
		}
	case bus.MessagesLoaded:
		if r, ok := evt.Payload.(intsync.HistoryResult); ok && r.FromCache {
			a.flash.Info(fmt.Sprintf("Showing %d cached messages.", r.Count))
		}
	case bus.OutboxResent:
		if r, ok := evt.Payload.(outbox.Result); ok && len(r.Sent) > 0 {
			a.flash.Info("Resent " + strconv.Itoa(len(r.Sent)) + " queued messages.")
		}
	}

	change := a.vm.Apply(evt)
	if evt.Kind == bus.MessagesLoaded {
		change |= a.refreshThread()
	}
	if change.Has(model.ChangeChats) {
		a.loadLocalChats()
	}
	if change != 0 {
		a.app.QueueUpdateDraw(func() { a.render(change) })
	}
}

// refreshThread replaces the thread with the engine's copy. History
// messages reach the UI only this way.
func (a *App) refreshThread() model.Change {
	ctx, cancel := context.WithTimeout(a.ctx, 2*time.Second)
	defer cancel()
	snap, err := a.d.Engine.Snapshot(ctx)
	if err != nil {
		a.logger.Debug("snapshot failed", zap.Error(err))
		return 0
	}
	if !a.vm.SetSnapshot(snap) {
		return 0
	}
	return model.ChangeThread | model.ChangeState
}

func (a *App) watchFlash() {
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-a.flash.Watch():
			case <-ticker.C:
			}
			a.app.QueueUpdateDraw(func() { a.flashBar.Update(a.flash.Current()) })
		}
	}()
}

func (a *App) render(c model.Change) {
	if c.Has(model.ChangeChats) {
		a.chatList.Update(a.vm.Chats())
	}
	if c.Has(model.ChangeThread) {
		a.thread.Update(a.vm.Messages())
	}
	if c.Has(model.ChangeThread) || c.Has(model.ChangeState) {
		if id := a.vm.ChatID(); id != "" {
			_, online := a.vm.State()
			a.thread.SetChat(a.chatName(id), online)
		}
	}
	a.renderHeader()
}

func (a *App) renderHeader() {
	state, online := a.vm.State()
	chatName := ""
	if id := a.vm.ChatID(); id != "" {
		chatName = a.chatName(id)
	}
	a.info.Update(ui.ProfileData{
		Profile:  a.d.Profile,
		Username: a.d.Self.Username,
		Server:   a.d.Server,
		Chat:     chatName,
		State:    string(state),
		Online:   online && state == status.Open,
		Chats:    len(a.vm.Chats()),
		Unread:   a.vm.Unread(),
	})
}

// loadLocalChats reads the chat list from the cache.
func (a *App) loadLocalChats() {
	chats, err := a.d.Store.ListChats(chatListLimit, 0)
	if err != nil {
		a.logger.Error("failed to list chats", zap.Error(err))
		return
	}
	a.vm.SetChats(chats)
}

// syncChats refreshes the cache from the server, then redraws the list.
func (a *App) syncChats() {
	ctx, cancel := context.WithTimeout(a.ctx, requestTime)
	defer cancel()
	remote, err := a.d.Directory.ListMyChats(ctx, a.d.Self.UserID)
	if err != nil {
		a.logger.Warn("failed to fetch chats", zap.Error(err))
		a.flash.Err("Could not load chats: " + err.Error())
		return
	}
	for _, c := range remote {
		s := c.Summary()
		if err := a.d.Store.UpsertChat(&s); err != nil {
			a.logger.Error("failed to cache chat", zap.String("chat_id", c.ID), zap.Error(err))
		}
	}
	a.loadLocalChats()
	a.app.QueueUpdateDraw(func() { a.render(model.ChangeChats) })
}

// fetchChat caches a chat that was opened by id before it was listed.
func (a *App) fetchChat(id string) {
	ctx, cancel := context.WithTimeout(a.ctx, requestTime)
	defer cancel()
	c, err := a.d.Directory.GetChat(ctx, id)
	if err != nil {
		a.logger.Warn("failed to fetch chat", zap.String("chat_id", id), zap.Error(err))
		return
	}
	a.cacheChat(c)
}

func (a *App) cacheChat(c *api.Chat) {
	s := c.Summary()
	if err := a.d.Store.UpsertChat(&s); err != nil {
		a.logger.Error("failed to cache chat", zap.String("chat_id", c.ID), zap.Error(err))
		return
	}
	a.loadLocalChats()
	a.app.QueueUpdateDraw(func() { a.render(model.ChangeChats | model.ChangeState) })
}

func (a *App) joinChat(id string) {
	if id == "" {
		a.flash.Warn("Usage: :join <chat-id>")
		return
	}
	ctx, cancel := context.WithTimeout(a.ctx, requestTime)
	defer cancel()
	if err := a.d.Directory.JoinChat(ctx, id, a.d.Self.UserID); err != nil {
		a.flash.Err("Could not join chat: " + err.Error())
		return
	}
	a.fetchChat(id)
	a.app.QueueUpdateDraw(func() { a.openChat(id) })
}

func (a *App) createChat(name string) {
	if name == "" {
		a.flash.Warn("Usage: :new <name>")
		return
	}
	ctx, cancel := context.WithTimeout(a.ctx, requestTime)
	defer cancel()
	c, err := a.d.Directory.CreateChat(ctx, name, a.d.Self.UserID)
	if err != nil {
		a.flash.Err("Could not create chat: " + err.Error())
		return
	}
	a.cacheChat(c)
	a.flash.Info("Created " + c.Name)
	a.app.QueueUpdateDraw(func() { a.openChat(c.ID) })
}

func (a *App) runSearch(q string) {
	results, err := a.d.Store.SearchMessages(q, "", searchLimit)
	if err != nil {
		a.flash.Err("Search failed: " + err.Error())
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.search.Update(results)
		if len(results) > 0 {
			a.app.SetFocus(a.search.Results())
		}
	})
}
