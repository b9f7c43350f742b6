package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ashureev/coin-gallery/internal/catalog"
	"github.com/ashureev/coin-gallery/internal/domain"
	"github.com/ashureev/coin-gallery/internal/metadata"
	"github.com/go-chi/chi/v5"
)

// Display placeholders for coins not analyzed yet.
const (
	PlaceholderField = "to be analyzed"
	PlaceholderNotes = "none"
)

// GalleryHandler serves the gallery, coin and lightbox pages and their JSON
// counterparts.
type GalleryHandler struct {
	*Handler
}

// NewGalleryHandler creates a new gallery handler.
func NewGalleryHandler(base *Handler) *GalleryHandler {
	return &GalleryHandler{Handler: base}
}

// RegisterRoutes registers gallery routes.
func (h *GalleryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Get("/coins/{id}", h.Coin)
	r.Get("/coins/{id}/photos/{photo}", h.Lightbox)
	r.Route("/api/coins", func(r chi.Router) {
		r.Get("/", h.ListCoins)
		r.Get("/{id}", h.GetCoin)
	})
	r.Handle("/pictures/*", http.StripPrefix("/pictures/", h.Pictures()))
}

type coinSummary struct {
	ID          int    `json:"id"`
	Number      int    `json:"-"`
	Image       string `json:"image"`
	Label       string `json:"label"`
	AIGenerated bool   `json:"ai_generated"`
	HasMetadata bool   `json:"-"`
}

type filtersView struct {
	metadata.Facets
	Selected metadata.Filter `json:"selected"`
}

type listingView struct {
	Coins   []coinSummary `json:"coins"`
	Filters filtersView   `json:"filters"`

	// Template conveniences.
	Facets   metadata.Facets `json:"-"`
	Selected metadata.Filter `json:"-"`
}

type photoView struct {
	Index       int    `json:"index"`
	URL         string `json:"url"`
	Side        string `json:"side"`
	LightboxURL string `json:"-"`
}

type coinView struct {
	ID          int               `json:"id"`
	Number      int               `json:"number"`
	Total       int               `json:"total"`
	Title       string            `json:"title"`
	Photos      []photoView       `json:"photos"`
	Country     string            `json:"country"`
	Currency    string            `json:"currency"`
	Year        string            `json:"year"`
	Value       string            `json:"value"`
	Notes       string            `json:"notes"`
	HasMetadata bool              `json:"has_metadata"`
	AIGenerated bool              `json:"ai_generated"`
	Valuation   *domain.Valuation `json:"valuation,omitempty"`
	Prev        *int              `json:"prev"`
	Next        *int              `json:"next"`

	PrevURL      string   `json:"-"`
	NextURL      string   `json:"-"`
	Placeholders []string `json:"-"`
}

type lightboxView struct {
	Coin     int    `json:"coin"`
	Number   int    `json:"number"`
	Total    int    `json:"total"`
	Photo    int    `json:"photo"`
	Side     string `json:"side"`
	Image    string `json:"image"`
	CloseURL string `json:"-"`
	PrevURL  string `json:"-"`
	NextURL  string `json:"-"`
}

func pictureURL(name string) string {
	return "/pictures/" + url.PathEscape(name)
}

func coinURL(id int) string {
	return fmt.Sprintf("/coins/%d", id)
}

func photoURL(ref catalog.PhotoRef) string {
	return fmt.Sprintf("/coins/%d/photos/%d", ref.Coin, ref.Photo)
}

func filterFromQuery(r *http.Request) metadata.Filter {
	q := r.URL.Query()
	return metadata.Filter{
		Country:  strings.TrimSpace(q.Get("country")),
		Currency: strings.TrimSpace(q.Get("currency")),
		Year:     strings.TrimSpace(q.Get("year")),
	}
}

// buildListing pairs catalog coins with their records. Filter values absent
// from the index are ignored; an active filter hides coins without records.
func buildListing(cat *catalog.Catalog, idx metadata.Index, requested metadata.Filter) listingView {
	facets := metadata.Distinct(idx)
	filter := facets.Restrict(requested)

	coins := make([]coinSummary, 0, cat.Len())
	for _, coin := range cat.Coins() {
		rec, ok := idx[coin.ID]
		if filter.Active() && (!ok || !filter.Match(rec)) {
			continue
		}
		summary := coinSummary{
			ID:          coin.ID,
			Number:      coin.ID + 1,
			Image:       pictureURL(coin.Cover()),
			Label:       domain.PlaceholderLabel(coin.ID),
			HasMetadata: ok,
		}
		if ok {
			summary.Label = rec.Label()
			summary.AIGenerated = rec.AIGenerated
		}
		coins = append(coins, summary)
	}

	return listingView{
		Coins:    coins,
		Filters:  filtersView{Facets: facets, Selected: filter},
		Facets:   facets,
		Selected: filter,
	}
}

func buildCoinView(cat *catalog.Catalog, coin catalog.Coin, rec *domain.CoinRecord) coinView {
	v := coinView{
		ID:           coin.ID,
		Number:       coin.ID + 1,
		Total:        cat.Len(),
		Title:        domain.PlaceholderLabel(coin.ID),
		Country:      PlaceholderField,
		Currency:     PlaceholderField,
		Year:         PlaceholderField,
		Value:        PlaceholderField,
		Notes:        PlaceholderNotes,
		Placeholders: []string{PlaceholderField, PlaceholderNotes},
	}
	for i, img := range coin.Images {
		v.Photos = append(v.Photos, photoView{
			Index:       i,
			URL:         pictureURL(img),
			Side:        catalog.Side(i),
			LightboxURL: photoURL(catalog.PhotoRef{Coin: coin.ID, Photo: i}),
		})
	}
	if coin.ID > 0 {
		prev := coin.ID - 1
		v.Prev = &prev
		v.PrevURL = coinURL(prev)
	}
	if coin.ID < cat.Len()-1 {
		next := coin.ID + 1
		v.Next = &next
		v.NextURL = coinURL(next)
	}

	if rec == nil {
		return v
	}
	v.HasMetadata = true
	v.Title = rec.Label()
	v.Country = rec.Country
	v.Currency = rec.Currency
	v.Value = rec.Value
	if y := rec.YearString(); y != "" {
		v.Year = y
	}
	if n := rec.NotesString(); n != "" {
		v.Notes = n
	}
	v.AIGenerated = rec.AIGenerated
	v.Valuation = rec.Valuation
	return v
}

// lookupCoin resolves the {id} route parameter against a fresh catalog.
func (h *GalleryHandler) lookupCoin(r *http.Request) (*catalog.Catalog, catalog.Coin, bool) {
	cat, err := h.scan()
	if err != nil {
		slog.Error("Failed to scan pictures", "error", err, "dir", h.picturesDir)
		return nil, catalog.Coin{}, false
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return cat, catalog.Coin{}, false
	}
	coin, ok := cat.Coin(id)
	return cat, coin, ok
}

// record returns the metadata for id, or nil when the coin has none or the
// document cannot be read.
func (h *GalleryHandler) record(cache *metadata.Cache, id int) *domain.CoinRecord {
	rec, err := cache.Get(id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Error("Failed to read coin metadata", "error", err, "coin_id", id)
		}
		return nil
	}
	return &rec
}

// Index renders the gallery page.
func (h *GalleryHandler) Index(w http.ResponseWriter, r *http.Request) {
	cat, err := h.scan()
	if err != nil {
		slog.Error("Failed to scan pictures", "error", err, "dir", h.picturesDir)
		http.Error(w, "pictures unavailable", http.StatusInternalServerError)
		return
	}
	idx, err := metadata.NewCache(h.store).Index()
	if err != nil {
		slog.Error("Failed to read metadata, rendering without captions", "error", err)
		idx = metadata.Index{}
	}
	h.render(w, "index.html", buildListing(cat, idx, filterFromQuery(r)))
}

// ListCoins returns the gallery listing as JSON.
func (h *GalleryHandler) ListCoins(w http.ResponseWriter, r *http.Request) {
	cat, err := h.scan()
	if err != nil {
		slog.Error("Failed to scan pictures", "error", err, "dir", h.picturesDir)
		Error(w, http.StatusInternalServerError, "pictures unavailable")
		return
	}
	idx, err := metadata.NewCache(h.store).Index()
	if err != nil {
		slog.Error("Failed to read metadata", "error", err)
		JSON(w, http.StatusInternalServerError, map[string]string{
			"error":   domain.Kind(err),
			"message": domain.Message(err),
		})
		return
	}
	JSON(w, http.StatusOK, buildListing(cat, idx, filterFromQuery(r)))
}

// Coin renders one coin's detail page. Unknown ids go back to the gallery.
func (h *GalleryHandler) Coin(w http.ResponseWriter, r *http.Request) {
	cat, coin, ok := h.lookupCoin(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	cache := metadata.NewCache(h.store)
	h.render(w, "coin.html", buildCoinView(cat, coin, h.record(cache, coin.ID)))
}

// GetCoin returns one coin's details as JSON.
func (h *GalleryHandler) GetCoin(w http.ResponseWriter, r *http.Request) {
	cat, coin, ok := h.lookupCoin(r)
	if !ok {
		Error(w, http.StatusNotFound, domain.KindNotFound)
		return
	}
	cache := metadata.NewCache(h.store)
	JSON(w, http.StatusOK, buildCoinView(cat, coin, h.record(cache, coin.ID)))
}

// Lightbox renders a single photograph with links to its neighbours.
func (h *GalleryHandler) Lightbox(w http.ResponseWriter, r *http.Request) {
	cat, coin, ok := h.lookupCoin(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	photo, err := strconv.Atoi(chi.URLParam(r, "photo"))
	ref := catalog.PhotoRef{Coin: coin.ID, Photo: photo}
	image, found := cat.Photo(ref)
	if err != nil || !found {
		http.Redirect(w, r, coinURL(coin.ID), http.StatusFound)
		return
	}

	v := lightboxView{
		Coin:     coin.ID,
		Number:   coin.ID + 1,
		Total:    cat.Len(),
		Photo:    photo,
		Side:     catalog.Side(photo),
		Image:    pictureURL(image),
		CloseURL: coinURL(coin.ID),
	}
	prev, next := cat.Neighbors(ref)
	if prev != nil {
		v.PrevURL = photoURL(*prev)
	}
	if next != nil {
		v.NextURL = photoURL(*next)
	}
	h.render(w, "lightbox.html", v)
}

// Pictures serves image files without directory listings.
func (h *GalleryHandler) Pictures() http.Handler {
	files := http.FileServer(http.Dir(h.picturesDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
