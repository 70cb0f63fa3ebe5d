package wiki

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrNotFound indicates the requested page has no backing file.
	ErrNotFound = errors.New("page not found")
	// ErrMoveConflict indicates the destination url of a move is already taken.
	ErrMoveConflict = errors.New("destination page already exists")
	// ErrInvalidURL indicates the url is empty or not a clean slug path.
	ErrInvalidURL = errors.New("invalid page url")
)

const pageExt = ".md"

// Store manages the collection of wiki pages, one text file per page under a
// content root. The on-disk path is a deterministic function of the url.
// Writes take a per-url lock; Move locks both keys in sorted order.
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a Store rooted at dir, creating the directory when missing.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create content directory: %w", err)
	}
	return &Store{root: dir, locks: map[string]*sync.Mutex{}}, nil
}

// NormalizeURL lowercases and cleans a raw url into slug path-segment form.
func NormalizeURL(raw string) (string, error) {
	url := strings.ToLower(strings.Trim(strings.TrimSpace(raw), "/"))
	if url == "" {
		return "", ErrInvalidURL
	}
	url = collapseSlashes(url)
	for _, seg := range strings.Split(url, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", ErrInvalidURL
		}
		for _, r := range seg {
			if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '.' {
				continue
			}
			return "", ErrInvalidURL
		}
	}
	return url, nil
}

func collapseSlashes(url string) string {
	parts := []string{}
	for _, seg := range strings.Split(url, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "/")
}

func (s *Store) path(url string) string {
	return filepath.Join(s.root, filepath.FromSlash(url)+pageExt)
}

// lock returns the mutex guarding one url, creating it on first use.
func (s *Store) lock(url string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[url]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[url] = l
	return l
}

// Get loads and parses a page. It returns (nil, nil) when the page has no
// backing file.
func (s *Store) Get(url string) (*Page, error) {
	url, err := NormalizeURL(url)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path(url))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read page %q: %w", url, err)
	}
	return parsePage(url, raw)
}

// GetOrFail loads a page and returns ErrNotFound when it does not exist.
func (s *Store) GetOrFail(url string) (*Page, error) {
	page, err := s.Get(url)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("%q: %w", url, ErrNotFound)
	}
	return page, nil
}

// GetBare returns an empty page bound to url without touching storage.
func (s *Store) GetBare(url string) (*Page, error) {
	url, err := NormalizeURL(url)
	if err != nil {
		return nil, err
	}
	return NewBarePage(url), nil
}

// Save serializes the page to its backing file, creating it when new and
// overwriting otherwise. The write goes through a temp file and rename so a
// crash never leaves a half-written page behind.
func (s *Store) Save(page *Page) error {
	url, err := NormalizeURL(page.URL)
	if err != nil {
		return err
	}
	page.URL = url

	l := s.lock(url)
	l.Lock()
	defer l.Unlock()

	dst := s.path(url)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create page directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".page-*")
	if err != nil {
		return fmt.Errorf("write page %q: %w", url, err)
	}
	if _, err := tmp.Write(page.serialize()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write page %q: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write page %q: %w", url, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write page %q: %w", url, err)
	}
	return nil
}

// Move renames a page's identity. It fails with ErrNotFound when the source is
// absent and ErrMoveConflict when the destination already exists; on failure
// both pages are left untouched.
func (s *Store) Move(oldURL, newURL string) error {
	oldURL, err := NormalizeURL(oldURL)
	if err != nil {
		return err
	}
	newURL, err = NormalizeURL(newURL)
	if err != nil {
		return err
	}
	if oldURL == newURL {
		return nil
	}

	// Lock both keys in sorted order to avoid deadlocks between crossing moves.
	first, second := oldURL, newURL
	if second < first {
		first, second = second, first
	}
	l1, l2 := s.lock(first), s.lock(second)
	l1.Lock()
	defer l1.Unlock()
	l2.Lock()
	defer l2.Unlock()

	src, dst := s.path(oldURL), s.path(newURL)
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%q: %w", oldURL, ErrNotFound)
	} else if err != nil {
		return fmt.Errorf("move page %q: %w", oldURL, err)
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%q: %w", newURL, ErrMoveConflict)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("move page %q: %w", newURL, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("move page %q: %w", newURL, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move page %q -> %q: %w", oldURL, newURL, err)
	}
	return nil
}

// Delete removes the page's backing file. Deleting an absent page fails with
// ErrNotFound; this store errors rather than treating it as a no-op.
func (s *Store) Delete(url string) error {
	url, err := NormalizeURL(url)
	if err != nil {
		return err
	}
	l := s.lock(url)
	l.Lock()
	defer l.Unlock()

	if err := os.Remove(s.path(url)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%q: %w", url, ErrNotFound)
		}
		return fmt.Errorf("delete page %q: %w", url, err)
	}
	return nil
}

// Index lists all pages in lexicographic url order. The ordering is stable
// across calls regardless of creation order.
func (s *Store) Index() ([]*Page, error) {
	urls := []string{}
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), pageExt) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		urls = append(urls, strings.TrimSuffix(filepath.ToSlash(rel), pageExt))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk content directory: %w", err)
	}
	sort.Strings(urls)

	pages := make([]*Page, 0, len(urls))
	for _, url := range urls {
		page, err := s.Get(url)
		if err != nil {
			return nil, err
		}
		if page != nil {
			pages = append(pages, page)
		}
	}
	return pages, nil
}

// Tags builds the inverted tag index over all pages.
func (s *Store) Tags() (map[string][]*Page, error) {
	pages, err := s.Index()
	if err != nil {
		return nil, err
	}
	index := map[string][]*Page{}
	for _, page := range pages {
		for _, tag := range page.Tags {
			index[tag] = append(index[tag], page)
		}
	}
	return index, nil
}

// IndexByTag returns pages whose tag set contains tag (exact match).
func (s *Store) IndexByTag(tag string) ([]*Page, error) {
	return s.filter(func(p *Page) bool {
		return p.HasTag(tag, false)
	})
}

// Search matches term as a substring against title and body.
func (s *Store) Search(term string, ignoreCase bool) ([]*Page, error) {
	return s.filter(func(p *Page) bool {
		return contains(p.DisplayTitle(), term, ignoreCase) || contains(p.Body, term, ignoreCase)
	})
}

// SearchByTags returns pages whose tag set intersects the given list; a page
// matches as soon as any requested tag is present.
func (s *Store) SearchByTags(tags []string, ignoreCase bool) ([]*Page, error) {
	return s.filter(func(p *Page) bool {
		for _, tag := range tags {
			if strings.TrimSpace(tag) == "" {
				continue
			}
			if p.HasTag(tag, ignoreCase) {
				return true
			}
		}
		return false
	})
}

// SearchByTitle matches any of the given fragments as a substring of the title.
func (s *Store) SearchByTitle(titles []string, ignoreCase bool) ([]*Page, error) {
	return s.filter(func(p *Page) bool {
		for _, frag := range titles {
			frag = strings.TrimSpace(frag)
			if frag != "" && contains(p.DisplayTitle(), frag, ignoreCase) {
				return true
			}
		}
		return false
	})
}

// SearchByBody matches term as a substring of the body only.
func (s *Store) SearchByBody(term string, ignoreCase bool) ([]*Page, error) {
	return s.filter(func(p *Page) bool {
		return contains(p.Body, term, ignoreCase)
	})
}

// filter runs a linear scan over the whole collection. Fine at personal-wiki
// scale; a larger corpus would want an incremental inverted index instead.
func (s *Store) filter(match func(*Page) bool) ([]*Page, error) {
	pages, err := s.Index()
	if err != nil {
		return nil, err
	}
	out := []*Page{}
	for _, page := range pages {
		if match(page) {
			out = append(out, page)
		}
	}
	return out, nil
}

func contains(haystack, needle string, ignoreCase bool) bool {
	if ignoreCase {
		return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
	}
	return strings.Contains(haystack, needle)
}
