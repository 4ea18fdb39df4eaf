package service

import (
	"encoding/xml"
	"strings"

	"github.com/zenGate-Global/rentboard/domains/listings/be/partner"
	"github.com/zenGate-Global/rentboard/platform/go/listingtext"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

type otodomFeed struct {
	XMLName xml.Name      `xml:"offers"`
	Offers  []otodomOffer `xml:"offer"`
}

type otodomOffer struct {
	ID            string        `xml:"id"`
	Title         string        `xml:"title"`
	Description   cdata         `xml:"description"`
	Price         otodomPrice   `xml:"price"`
	Area          string        `xml:"area"`
	Address       otodomAddress `xml:"address"`
	AvailableFrom string        `xml:"available_from,omitempty"`
	Pictures      []string      `xml:"pictures>picture"`
}

type otodomPrice struct {
	Currency string `xml:"currency,attr"`
	Value    string `xml:",chardata"`
}

type otodomAddress struct {
	Street     string `xml:"street,omitempty"`
	Number     string `xml:"number,omitempty"`
	PostalCode string `xml:"postal_code,omitempty"`
	City       string `xml:"city,omitempty"`
}

// RenderOtodom builds the Otodom feed. Every apartment passes through unfiltered and
// unclamped; the placeholder image is only used when baseURL is set.
func RenderOtodom(apts []rental.Apartment, baseURL string) ([]byte, error) {
	feed := otodomFeed{Offers: make([]otodomOffer, 0, len(apts))}
	hasBase := strings.TrimSpace(baseURL) != ""
	for _, apt := range apts {
		street := deref(apt.Street)
		if street == "" {
			street = listingtext.Normalize(apt.Address)
		}
		feed.Offers = append(feed.Offers, otodomOffer{
			ID:          partner.ExternalID(apt.ID),
			Title:       listingtext.Normalize(apt.Title),
			Description: cdata{Text: listingtext.Normalize(apt.Description)},
			Price:       otodomPrice{Currency: "PLN", Value: formatNumber(apt.Price)},
			Area:        formatNumber(apt.AreaM2),
			Address: otodomAddress{
				Street:     street,
				Number:     deref(apt.StreetNumber),
				PostalCode: deref(apt.PostalCode),
				City:       deref(apt.City),
			},
			AvailableFrom: formatDate(apt),
			Pictures:      images(apt, baseURL, hasBase),
		})
	}
	return encode(feed)
}
