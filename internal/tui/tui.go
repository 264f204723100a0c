package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/Joseda-hg/taskmanager/internal/model"
	"github.com/Joseda-hg/taskmanager/internal/service"
	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
)

const (
	viewHeader = "header"
	viewFooter = "footer"
	viewList   = "list"
	viewDetail = "detail"
	viewSearch = "search"
	viewForm   = "form"
	viewHelp   = "help"
)

type UI struct {
	service *service.Service
	gui     *gocui.Gui

	query    model.Query
	items    []model.View
	selected int

	form         *formState
	formEditor   *formEditor
	searchActive bool
	helpActive   bool
	status       string
}

type formState struct {
	fields []formField
	index  int
}

type formEditor struct {
	ui *UI
}

func Run(svc *service.Service) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(svc)
	ui.gui = gui
	gui.Mouse = false
	ui.formEditor = &formEditor{ui: ui}

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	if err := ui.loadAssignments(); err != nil {
		return err
	}

	if err := gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}

	return nil
}

func newUI(svc *service.Service) *UI {
	return &UI{
		service: svc,
		query:   model.Query{Page: model.DefaultPage, PageSize: model.DefaultPageSize},
	}
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	bindings := []struct {
		view    string
		key     any
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{"", gocui.KeyCtrlC, u.quit},
		{"", 'q', u.quit},
		{"", 'r', u.reload},
		{"", 'g', u.clearFilters},
		{"", 'a', u.addAssignment},
		{"", 'n', u.nextPage},
		{"", 'p', u.prevPage},
		{"", 's', u.cycleSort},
		{"", 'o', u.toggleOrder},
		{"", 'S', u.syncRemote},
		{"", '/', u.startSearch},
		{"", '?', u.toggleHelp},
		{viewList, 'j', u.moveDown},
		{viewList, 'k', u.moveUp},
		{viewList, gocui.KeyArrowDown, u.moveDown},
		{viewList, gocui.KeyArrowUp, u.moveUp},
		{viewList, 'x', u.toggleCompleted},
		{viewList, gocui.KeySpace, u.toggleCompleted},
		{viewSearch, gocui.KeyEnter, u.submitSearch},
		{viewSearch, gocui.KeyEsc, u.cancelSearch},
		{viewForm, gocui.KeyEnter, u.submitFormNow},
		{viewForm, gocui.KeyTab, u.nextFormField},
		{viewForm, gocui.KeyBacktab, u.prevFormField},
		{viewForm, gocui.KeyArrowDown, u.nextFormField},
		{viewForm, gocui.KeyArrowUp, u.prevFormField},
		{viewForm, gocui.KeyEsc, u.cancelForm},
		{viewHelp, gocui.KeyEsc, u.closeHelp},
	}

	for _, binding := range bindings {
		if err := gui.SetKeybinding(binding.view, binding.key, gocui.ModNone, binding.handler); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	u.renderHeader(headerView)

	footerY1 := max(maxY-2, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom <= bodyTop {
		return nil
	}

	listX1 := max(maxX*2/3, 20)
	if listX1 >= maxX-1 {
		listX1 = maxX - 1
	}

	listView, err := gui.SetView(viewList, 0, bodyTop, listX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		listView.Title = "Assignments"
		_, _ = gui.SetCurrentView(viewList)
	}
	applyViewStyle(listView, !u.inputActive())
	u.renderList(listView)

	if listX1+1 < maxX-1 {
		detailView, err := gui.SetView(viewDetail, listX1+1, bodyTop, maxX-1, bodyBottom, 0)
		if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		if goerrors.Is(err, gocui.ErrUnknownView) {
			detailView.Title = "Details"
			detailView.Wrap = true
		}
		u.renderDetail(detailView)
	}

	if u.searchActive {
		if err := u.showSearch(gui); err != nil {
			return err
		}
	}
	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	}
	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	}

	gui.Cursor = u.searchActive || u.form != nil
	return nil
}

func (u *UI) loadAssignments() error {
	items, err := u.service.List(context.Background(), u.query)
	if err != nil {
		return err
	}
	u.items = items
	if u.selected >= len(u.items) {
		u.selected = max(len(u.items)-1, 0)
	}
	return nil
}

func (u *UI) selectedAssignment() *model.View {
	if u.selected >= 0 && u.selected < len(u.items) {
		return &u.items[u.selected]
	}
	return nil
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	title := strings.TrimSpace(u.query.Title)
	if title == "" {
		title = "type / to search"
	}
	q := u.query.Normalize()
	fmt.Fprintf(view, "Search: %s | Sort: %s | Page: %d (%d per page)", title, sortLabel(u.query), q.Page, q.PageSize)
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	fmt.Fprintln(view, "x/space toggle done | a add | n/p page | s sort | o order | / search | g clear")
	fmt.Fprintln(view, "S sync remote | r reload | ? help | q quit")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderList(view *gocui.View) {
	view.Clear()
	if len(u.items) == 0 {
		fmt.Fprintln(view, "  no assignments")
		return
	}
	for i, item := range u.items {
		prefix := " "
		if i == u.selected {
			prefix = ">"
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatAssignmentSummary(item))
	}
	view.SetCursor(0, min(u.selected, len(u.items)-1))
}

func (u *UI) renderDetail(view *gocui.View) {
	view.Clear()
	selected := u.selectedAssignment()
	if selected == nil {
		return
	}
	state := "incomplete"
	if selected.Completed {
		state = "completed"
	}
	fmt.Fprintf(view, "ID: %d\nTitle: %s\nUser: %d\nStatus: %s\n", selected.ID, selected.Title, selected.User, state)
}

func (u *UI) moveDown(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selected < len(u.items)-1 {
		u.selected++
	}
	return nil
}

func (u *UI) moveUp(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selected > 0 {
		u.selected--
	}
	return nil
}

func (u *UI) toggleCompleted(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedAssignment()
	if selected == nil {
		return nil
	}

	if _, err := u.service.UpdateStatus(context.Background(), selected.ID, !selected.Completed); err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = ""
	return u.loadAssignments()
}

func (u *UI) nextPage(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	q := u.query.Normalize()
	if len(u.items) < q.PageSize {
		u.status = "last page"
		return nil
	}

	u.query.Page = q.Page + 1
	if err := u.loadAssignments(); err != nil {
		return err
	}
	if len(u.items) == 0 {
		u.query.Page = q.Page
		u.status = "last page"
		return u.loadAssignments()
	}
	u.selected = 0
	u.status = ""
	return nil
}

func (u *UI) prevPage(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	q := u.query.Normalize()
	if q.Page <= 1 {
		u.status = "first page"
		return nil
	}
	u.query.Page = q.Page - 1
	u.selected = 0
	u.status = ""
	return u.loadAssignments()
}

func (u *UI) cycleSort(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.query.Sort = string(nextSortField(u.query.Sort))
	u.query.Page = 1
	return u.loadAssignments()
}

func (u *UI) toggleOrder(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.query.Normalize().Order == "desc" {
		u.query.Order = "asc"
	} else {
		u.query.Order = "desc"
	}
	u.query.Page = 1
	return u.loadAssignments()
}

func (u *UI) syncRemote(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = "syncing..."
	if err := u.service.SyncFromRemote(context.Background()); err != nil {
		u.status = "sync failed: " + err.Error()
		return nil
	}
	u.status = "sync finished"
	return u.loadAssignments()
}

func (u *UI) reload(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = ""
	return u.loadAssignments()
}

func (u *UI) clearFilters(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.query = model.Query{Page: model.DefaultPage, PageSize: model.DefaultPageSize}
	u.selected = 0
	return u.reload(gui, nil)
}

func (u *UI) startSearch(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.searchActive = true
	return nil
}

func (u *UI) showSearch(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(30, maxX/2)
	x0 := (maxX - width) / 2
	y0 := (maxY - 3) / 2

	view, err := gui.SetView(viewSearch, x0, y0, x0+width, y0+2, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Search title"
		view.Clear()
		fmt.Fprint(view, u.query.Title)
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewSearch)
	return nil
}

func (u *UI) submitSearch(gui *gocui.Gui, view *gocui.View) error {
	u.query.Title = strings.TrimSpace(view.Buffer())
	u.query.Page = 1
	u.selected = 0
	u.searchActive = false
	u.status = ""
	_ = gui.DeleteView(viewSearch)
	_, _ = gui.SetCurrentView(viewList)
	return u.loadAssignments()
}

func (u *UI) cancelSearch(gui *gocui.Gui, _ *gocui.View) error {
	u.searchActive = false
	_ = gui.DeleteView(viewSearch)
	_, _ = gui.SetCurrentView(viewList)
	return nil
}

func (u *UI) addAssignment(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.form = &formState{fields: buildFormFields()}
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(50, maxX/2)
	height := 4
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "New Assignment"
		view.Wrap = true
	}
	view.Editable = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) submitFormNow(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}

	intent, err := parseFormFields(u.form.fields)
	if err != nil {
		u.status = err.Error()
		return nil
	}

	if _, err := u.service.Create(context.Background(), intent); err != nil {
		u.status = err.Error()
		return nil
	}

	u.form = nil
	u.status = ""
	if gui != nil {
		_ = gui.DeleteView(viewForm)
		_, _ = gui.SetCurrentView(viewList)
	}
	return u.loadAssignments()
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	_ = gui.DeleteView(viewForm)
	_, _ = gui.SetCurrentView(viewList)
	return nil
}

func (u *UI) nextFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, field.Value)
	}
	label := u.form.fields[u.form.index].Label + ": "
	cursorX := len([]rune(label)) + len([]rune(u.form.fields[u.form.index].Value)) + 2
	view.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || view == nil {
		return false
	}
	field := &ui.form.fields[ui.form.index]

	if isCompletedField(field.Label) {
		switch key {
		case gocui.KeyArrowRight, gocui.KeyArrowLeft, gocui.KeySpace:
			field.Value = toggleYesNo(field.Value)
		}
		ui.renderForm(view)
		return true
	}

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}

	ui.renderForm(view)
	return true
}

func (u *UI) toggleHelp(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	if !u.helpActive {
		return u.closeHelp(gui, nil)
	}
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	_ = gui.DeleteView(viewHelp)
	_, _ = gui.SetCurrentView(viewList)
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(50, maxX/2)
	height := min(16, maxY-2)
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help (esc to close)"
		view.Wrap = true
		fmt.Fprint(view, helpText())
	}
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) inputActive() bool {
	return u.searchActive || u.form != nil || u.helpActive
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  j/k or arrows move selection",
		"  n next page | p previous page",
		"",
		"Actions:",
		"  x or space toggle completed",
		"  a add assignment | enter save (form) | tab next field",
		"  S sync from the remote source",
		"",
		"Search/Sort:",
		"  / search titles | g clear",
		"  s cycle sort (id, title, user, completed) | o flip order",
		"",
		"A user may hold at most 5 incomplete assignments.",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool) {
	view.Frame = true
	view.Highlight = focused
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}
