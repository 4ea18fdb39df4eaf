package service

import (
	"encoding/xml"
	"strings"

	"github.com/zenGate-Global/rentboard/domains/listings/be/partner"
	"github.com/zenGate-Global/rentboard/domains/listings/be/partner/olx"
	"github.com/zenGate-Global/rentboard/platform/go/listingtext"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

const (
	olxTitleMin       = 5
	olxTitleMax       = 70
	olxDescriptionMin = 20
	olxDescriptionMax = 9000
)

type olxFeed struct {
	XMLName xml.Name    `xml:"adverts"`
	Adverts []olxAdvert `xml:"advert"`
}

type olxAdvert struct {
	ID            string      `xml:"id"`
	Title         string      `xml:"title"`
	Description   cdata       `xml:"description"`
	CategoryID    int         `xml:"category_id"`
	Price         olxPrice    `xml:"price"`
	Area          string      `xml:"area"`
	Location      olxLocation `xml:"location"`
	Images        []string    `xml:"images>image"`
	AvailableFrom string      `xml:"available_from,omitempty"`
}

type olxPrice struct {
	Value    string `xml:"value"`
	Currency string `xml:"currency"`
}

type olxLocation struct {
	City string `xml:"city,omitempty"`
	Lat  string `xml:"lat"`
	Lon  string `xml:"lon"`
}

// RenderOLX builds the OLX feed. Apartments without a title or with a non-positive price or
// area are left out; text fields are clamped to the OLX limits and every advert carries at
// least one image.
func RenderOLX(apts []rental.Apartment, baseURL string) ([]byte, error) {
	feed := olxFeed{Adverts: make([]olxAdvert, 0, len(apts))}
	for _, apt := range apts {
		if !olxPublishable(apt) {
			continue
		}
		lat, lon := coordinates(apt)
		feed.Adverts = append(feed.Adverts, olxAdvert{
			ID:          partner.ExternalID(apt.ID),
			Title:       listingtext.Clamp(apt.Title, olxTitleMin, olxTitleMax, ""),
			Description: cdata{Text: listingtext.Clamp(apt.Description, olxDescriptionMin, olxDescriptionMax, "")},
			CategoryID:  olx.DefaultCategoryID,
			Price:       olxPrice{Value: formatNumber(apt.Price), Currency: "PLN"},
			Area:        formatNumber(apt.AreaM2),
			Location: olxLocation{
				City: deref(apt.City),
				Lat:  lat,
				Lon:  lon,
			},
			Images:        images(apt, baseURL, true),
			AvailableFrom: formatDate(apt),
		})
	}
	return encode(feed)
}

func olxPublishable(apt rental.Apartment) bool {
	return strings.TrimSpace(apt.Title) != "" && apt.Price > 0 && apt.AreaM2 > 0
}
