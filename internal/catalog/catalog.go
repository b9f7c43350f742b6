// Package catalog reads coin photographs from a directory and pairs them
// into coins.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PhotosPerCoin is the number of photographs taken of each coin.
const PhotosPerCoin = 2

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
}

// Coin is one catalogued coin: its position and its photographs.
type Coin struct {
	ID     int
	Images []string
}

// Cover is the photograph used as the coin's thumbnail.
func (c Coin) Cover() string {
	if len(c.Images) == 0 {
		return ""
	}
	return c.Images[0]
}

// Catalog is the ordered list of coins found in a pictures directory.
type Catalog struct {
	coins []Coin
}

// PhotoRef addresses one photograph of one coin.
type PhotoRef struct {
	Coin  int
	Photo int
}

// Scan lists the image files of dir, sorts them by name and groups them
// pairwise. A trailing unpaired image becomes a single-image coin.
func Scan(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read pictures directory: %w", err)
	}

	var images []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			images = append(images, e.Name())
		}
	}
	return FromImages(images), nil
}

// FromImages builds a catalog from a list of image file names.
func FromImages(images []string) *Catalog {
	sorted := append([]string(nil), images...)
	sort.Strings(sorted)

	coins := make([]Coin, 0, (len(sorted)+PhotosPerCoin-1)/PhotosPerCoin)
	for i := 0; i < len(sorted); i += PhotosPerCoin {
		end := min(i+PhotosPerCoin, len(sorted))
		coins = append(coins, Coin{ID: len(coins), Images: sorted[i:end]})
	}
	return &Catalog{coins: coins}
}

// Len returns the number of coins.
func (c *Catalog) Len() int {
	return len(c.coins)
}

// Coins returns all coins in id order.
func (c *Catalog) Coins() []Coin {
	return c.coins
}

// Coin returns the coin with the given id.
func (c *Catalog) Coin(id int) (Coin, bool) {
	if id < 0 || id >= len(c.coins) {
		return Coin{}, false
	}
	return c.coins[id], true
}

// Photo returns the file name of one photograph.
func (c *Catalog) Photo(ref PhotoRef) (string, bool) {
	coin, ok := c.Coin(ref.Coin)
	if !ok || ref.Photo < 0 || ref.Photo >= len(coin.Images) {
		return "", false
	}
	return coin.Images[ref.Photo], true
}

// Neighbors returns the photographs before and after ref when browsing the
// whole catalog photo by photo. Either result is nil at the ends.
func (c *Catalog) Neighbors(ref PhotoRef) (prev, next *PhotoRef) {
	coin, ok := c.Coin(ref.Coin)
	if !ok {
		return nil, nil
	}

	switch {
	case ref.Photo > 0:
		prev = &PhotoRef{Coin: ref.Coin, Photo: ref.Photo - 1}
	case ref.Coin > 0:
		before := c.coins[ref.Coin-1]
		prev = &PhotoRef{Coin: ref.Coin - 1, Photo: len(before.Images) - 1}
	}

	switch {
	case ref.Photo < len(coin.Images)-1:
		next = &PhotoRef{Coin: ref.Coin, Photo: ref.Photo + 1}
	case ref.Coin < len(c.coins)-1:
		next = &PhotoRef{Coin: ref.Coin + 1, Photo: 0}
	}
	return prev, next
}

// Side names the face shown by a photograph index.
func Side(photo int) string {
	if photo == 0 {
		return "Front"
	}
	return "Back"
}
