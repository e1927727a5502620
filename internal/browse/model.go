// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package browse

import (
	"context"
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/staranto/catinfo/internal/cache"
	"github.com/staranto/catinfo/internal/catapi"
	"github.com/staranto/catinfo/internal/loader"
)

const (
	// prefetchWithin is how close to the end of the loaded images the next
	// page is requested.
	prefetchWithin = 3

	msgNoImages   = "No images available for this breed"
	msgNoURL      = "Image unavailable"
	msgLoadFailed = "Failed to load image"
)

// Searcher pages through a breed's images.
type Searcher interface {
	SearchImages(ctx context.Context, breedID string, limit, page int) ([]*catapi.Image, error)
}

// Fetcher resolves an image URL to a decoded picture, through the cache.
type Fetcher interface {
	LoadURL(ctx context.Context, url string) (*loader.Result, error)
}

type pageMsg struct {
	page   int
	images []*catapi.Image
	err    error
}

type imageMsg struct {
	seq int
	res *loader.Result
	err error
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f6be00"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00c8f0"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// Model is the carousel state.
type Model struct {
	ctx      context.Context
	search   Searcher
	fetch    Fetcher
	breedID  string
	title    string
	pageSize int

	images []*catapi.Image
	index  int

	// page is the last page requested; pageLoading guards against asking
	// for the next one twice.
	page        int
	pageLoading bool
	exhausted   bool

	// seq identifies the image the view is waiting for. Results carrying an
	// older seq arrive after the user moved on and are dropped.
	seq     int
	current *loader.Result
	loading bool
	status  string
	err     error

	width, height int
	spinner       spinner.Model
	help          help.Model
}

// New returns a carousel over breedID's images. title is shown above the
// picture.
func New(ctx context.Context, search Searcher, fetch Fetcher, breedID, title string) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	return Model{
		ctx:         ctx,
		search:      search,
		fetch:       fetch,
		breedID:     breedID,
		title:       title,
		pageSize:    catapi.PageSize,
		pageLoading: true,
		width:       80,
		height:      24,
		spinner:     sp,
		help:        help.New(),
	}
}

// Init requests the first page.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchPage(0))
}

// Update handles key presses and async results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, keys.Next):
			if m.index < len(m.images)-1 {
				return m.show(m.index + 1)
			}
			return m, nil
		case key.Matches(msg, keys.Prev):
			if m.index > 0 {
				return m.show(m.index - 1)
			}
			return m, nil
		}
		return m, nil

	case pageMsg:
		return m.pageLoaded(msg)

	case imageMsg:
		if msg.seq != m.seq {
			log.Debugf("dropping stale image result %d (want %d)", msg.seq, m.seq)
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			log.WithError(msg.err).Debug("image load failed")
			m.current = nil
			m.status = msgLoadFailed
			m.err = msg.err
			return m, nil
		}
		m.current = msg.res
		m.status = ""
		m.err = nil
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) pageLoaded(msg pageMsg) (tea.Model, tea.Cmd) {
	m.pageLoading = false

	if msg.err != nil {
		if msg.page == 0 {
			m.err = msg.err
			m.status = "Failed to load images: " + msg.err.Error()
			return m, nil
		}
		// A later page failing leaves what we have; it is retried on the next
		// move toward the end.
		log.WithError(msg.err).Warnf("failed to load image page %d", msg.page)
		m.page = msg.page - 1
		return m, nil
	}

	if len(msg.images) < m.pageSize {
		m.exhausted = true
	}

	first := len(m.images) == 0
	m.images = append(m.images, msg.images...)

	if first {
		if len(m.images) == 0 {
			m.status = msgNoImages
			return m, nil
		}
		return m.show(0)
	}
	return m, nil
}

// show moves to index and starts loading it. Getting within prefetchWithin of
// the end also asks for the next page.
func (m Model) show(index int) (tea.Model, tea.Cmd) {
	m.index = index
	m.seq++
	m.current = nil
	m.err = nil
	m.status = ""

	var cmds []tea.Cmd
	if m.index >= len(m.images)-prefetchWithin && !m.exhausted && !m.pageLoading {
		m.pageLoading = true
		m.page++
		cmds = append(cmds, m.fetchPage(m.page))
	}

	img := m.images[index]
	if img == nil || img.URL == "" {
		m.loading = false
		m.status = msgNoURL
		return m, tea.Batch(cmds...)
	}

	m.loading = true
	cmds = append(cmds, m.fetchImage(m.seq, img.URL))
	return m, tea.Batch(cmds...)
}

func (m Model) fetchPage(page int) tea.Cmd {
	ctx, search, breedID, size := m.ctx, m.search, m.breedID, m.pageSize
	return func() tea.Msg {
		images, err := search.SearchImages(ctx, breedID, size, page)
		return pageMsg{page: page, images: images, err: err}
	}
}

func (m Model) fetchImage(seq int, url string) tea.Cmd {
	ctx, fetch := m.ctx, m.fetch
	return func() tea.Msg {
		res, err := fetch.LoadURL(ctx, url)
		return imageMsg{seq: seq, res: res, err: err}
	}
}

// PageInfo is the "Image i of n" line, or the current status message.
func (m Model) PageInfo() string {
	if m.status != "" {
		return m.status
	}
	if len(m.images) == 0 {
		return ""
	}
	return fmt.Sprintf("Image %d of %d", m.index+1, len(m.images))
}

// CanNext reports whether there is an image after the current one.
func (m Model) CanNext() bool { return m.index < len(m.images)-1 }

// CanPrev reports whether there is an image before the current one.
func (m Model) CanPrev() bool { return m.index > 0 }

// View renders the carousel.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString("\n\n")

	// Leave room for title, page info and help.
	rows := m.height - 6
	if rows < 4 {
		rows = 4
	}

	switch {
	case m.pageLoading && len(m.images) == 0:
		sb.WriteString(m.spinner.View() + " loading images")
	case m.loading:
		sb.WriteString(m.spinner.View() + " loading image")
	case m.current != nil && m.current.Picture != nil:
		sb.WriteString(Preview(m.current.Picture.Image, m.width, rows))
	}
	sb.WriteString("\n\n")

	info := m.PageInfo()
	if m.err != nil || m.status == msgNoURL {
		sb.WriteString(errStyle.Render(info))
	} else {
		sb.WriteString(infoStyle.Render(info))
	}
	if m.current != nil && m.current.Picture != nil {
		sb.WriteString(dimStyle.Render("  " + Describe(m.current)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.help.View(keys))
	return sb.String()
}

// Describe summarizes a loaded picture: dimensions, format, encoded size and
// where it came from.
func Describe(res *loader.Result) string {
	w, h := res.Picture.Size()
	origin := res.Source.String()
	if res.Tier != cache.TierNone {
		origin = res.Tier.String() + " cache"
	}
	return fmt.Sprintf("%dx%d %s, %s from %s",
		w, h, res.Picture.Format, humanize.IBytes(uint64(len(res.Picture.Raw))), origin)
}

// Run starts the carousel on the terminal.
func Run(ctx context.Context, search Searcher, fetch Fetcher, breedID, title string) error {
	p := tea.NewProgram(New(ctx, search, fetch, breedID, title), tea.WithContext(ctx), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
