package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

const (
	ApartmentsTable   = "apartments"
	ExternalRefsTable = "apartment_external_refs"
)

var (
	// ErrApartmentNotFound indicates a missing apartment record.
	ErrApartmentNotFound = errors.New("apartment not found")
	// ErrExternalRefNotFound indicates no reference row matched the lookup.
	ErrExternalRefNotFound = errors.New("external reference not found")
	// ErrExternalRefConflict indicates another apartment already holds the pending transaction id.
	ErrExternalRefConflict = errors.New("external reference conflict")
)

const apartmentColumns = `apartment_id, owner_id, title, address, street, street_number, postal_code, city,
        price, area_m2, description, photo_urls, status, contract_end_date, available_from,
        latitude, longitude, otodom_city_id, otodom_street_name, created_at, updated_at`

// ApartmentStore exposes the apartment reads and external reference writes the sync core needs.
// Apartment rows themselves are owned by the CRUD collaborator; UpsertApartment exists for seeding.
type ApartmentStore struct {
	pool *pgxpool.Pool
}

// NewApartmentStore returns a store bound to the pool.
func NewApartmentStore(pool *pgxpool.Pool) (*ApartmentStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ApartmentStore{pool: pool}, nil
}

// UpsertApartment inserts or replaces the apartment row. External references are not touched.
func (s *ApartmentStore) UpsertApartment(ctx context.Context, apt rental.Apartment) (rental.Apartment, error) {
	if apt.ID == uuid.Nil {
		return rental.Apartment{}, errors.New("apartment id is required")
	}
	photos := apt.PhotoURLs
	if photos == nil {
		photos = []string{}
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (apartment_id, owner_id, title, address, street, street_number, postal_code, city,
            price, area_m2, description, photo_urls, status, contract_end_date, available_from,
            latitude, longitude, otodom_city_id, otodom_street_name)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
        ON CONFLICT (apartment_id) DO UPDATE SET
            owner_id = EXCLUDED.owner_id, title = EXCLUDED.title, address = EXCLUDED.address,
            street = EXCLUDED.street, street_number = EXCLUDED.street_number, postal_code = EXCLUDED.postal_code,
            city = EXCLUDED.city, price = EXCLUDED.price, area_m2 = EXCLUDED.area_m2,
            description = EXCLUDED.description, photo_urls = EXCLUDED.photo_urls, status = EXCLUDED.status,
            contract_end_date = EXCLUDED.contract_end_date, available_from = EXCLUDED.available_from,
            latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude,
            otodom_city_id = EXCLUDED.otodom_city_id, otodom_street_name = EXCLUDED.otodom_street_name,
            updated_at = NOW()
        RETURNING %s
    `, ApartmentsTable, apartmentColumns),
		apt.ID.String(), apt.OwnerID, strings.TrimSpace(apt.Title), apt.Address, apt.Street, apt.StreetNumber,
		apt.PostalCode, apt.City, apt.Price, apt.AreaM2, apt.Description, photos, string(apt.Status),
		apt.ContractEndDate, apt.AvailableFrom, apt.Latitude, apt.Longitude, apt.OtodomCityID, apt.OtodomStreetName,
	)

	saved, err := scanApartment(row)
	if err != nil {
		return rental.Apartment{}, fmt.Errorf("upsert apartment: %w", err)
	}

	refs, err := s.loadRefs(ctx, []uuid.UUID{saved.ID})
	if err != nil {
		return rental.Apartment{}, err
	}
	saved.ExternalRefs = refs[saved.ID]
	return saved, nil
}

// GetApartment returns one apartment with its external references.
func (s *ApartmentStore) GetApartment(ctx context.Context, id uuid.UUID) (rental.Apartment, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE apartment_id = $1
    `, apartmentColumns, ApartmentsTable), id.String())

	apt, err := scanApartment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rental.Apartment{}, ErrApartmentNotFound
		}
		return rental.Apartment{}, err
	}

	refs, err := s.loadRefs(ctx, []uuid.UUID{apt.ID})
	if err != nil {
		return rental.Apartment{}, err
	}
	apt.ExternalRefs = refs[apt.ID]
	return apt, nil
}

// ListApartmentsByStatus returns apartments with the given status in ascending id order,
// optionally restricted to one owner.
func (s *ApartmentStore) ListApartmentsByStatus(ctx context.Context, status rental.Status, ownerID *string) ([]rental.Apartment, error) {
	args := []any{string(status)}
	where := "status = $1"
	if ownerID != nil && strings.TrimSpace(*ownerID) != "" {
		args = append(args, strings.TrimSpace(*ownerID))
		where += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE %s ORDER BY apartment_id ASC
    `, apartmentColumns, ApartmentsTable, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list apartments: %w", err)
	}
	defer rows.Close()

	apartments := make([]rental.Apartment, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		apt, scanErr := scanApartment(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan apartment: %w", scanErr)
		}
		apartments = append(apartments, apt)
		ids = append(ids, apt.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate apartments: %w", err)
	}

	refs, err := s.loadRefs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range apartments {
		apartments[i].ExternalRefs = refs[apartments[i].ID]
	}

	return apartments, nil
}

// SetExternalRef stores the reference for (apartment, platform). An empty reference deletes the row.
func (s *ApartmentStore) SetExternalRef(ctx context.Context, id uuid.UUID, platform rental.Platform, ref rental.ExternalRef) error {
	if ref.IsEmpty() {
		return s.ClearExternalRef(ctx, id, platform)
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
        INSERT INTO %s (apartment_id, platform, state, reference, listing_url, last_error, updated_at)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NOW())
        ON CONFLICT (apartment_id, platform) DO UPDATE SET
            state = EXCLUDED.state, reference = EXCLUDED.reference,
            listing_url = EXCLUDED.listing_url, last_error = EXCLUDED.last_error, updated_at = NOW()
    `, ExternalRefsTable), id.String(), string(platform), string(ref.State), ref.Value, ref.URL, ref.LastError)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrExternalRefConflict
		}
		return fmt.Errorf("set external ref: %w", err)
	}
	return nil
}

// ClearExternalRef removes the reference; clearing an absent reference is not an error.
func (s *ApartmentStore) ClearExternalRef(ctx context.Context, id uuid.UUID, platform rental.Platform) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`
        DELETE FROM %s WHERE apartment_id = $1 AND platform = $2
    `, ExternalRefsTable), id.String(), string(platform)); err != nil {
		return fmt.Errorf("clear external ref: %w", err)
	}
	return nil
}

// ConfirmPendingRef promotes the pending reference holding transactionID to a confirmed listing id.
// Only rows still in the pending state match, so a late duplicate notification is a no-op miss.
func (s *ApartmentStore) ConfirmPendingRef(ctx context.Context, platform rental.Platform, transactionID, listingID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET state = 'confirmed', reference = $3, last_error = NULL, updated_at = NOW()
        WHERE platform = $1 AND state = 'pending' AND reference = $2
        RETURNING apartment_id
    `, ExternalRefsTable), string(platform), transactionID, listingID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrExternalRefNotFound
		}
		return uuid.Nil, fmt.Errorf("confirm external ref: %w", err)
	}
	return id, nil
}

// MarkPendingRefError records a partner-reported failure on a pending reference without changing its state.
func (s *ApartmentStore) MarkPendingRefError(ctx context.Context, platform rental.Platform, transactionID, message string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s
        SET last_error = $3, updated_at = NOW()
        WHERE platform = $1 AND state = 'pending' AND reference = $2
        RETURNING apartment_id
    `, ExternalRefsTable), string(platform), transactionID, message).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrExternalRefNotFound
		}
		return uuid.Nil, fmt.Errorf("mark external ref error: %w", err)
	}
	return id, nil
}

func (s *ApartmentStore) loadRefs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]map[rental.Platform]rental.ExternalRef, error) {
	out := make(map[uuid.UUID]map[rental.Platform]rental.ExternalRef, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT apartment_id, platform, state, reference, COALESCE(listing_url, ''), COALESCE(last_error, ''), updated_at
        FROM %s WHERE apartment_id = ANY($1::uuid[])
    `, ExternalRefsTable), keys)
	if err != nil {
		return nil, fmt.Errorf("load external refs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       uuid.UUID
			platform string
			state    string
			ref      rental.ExternalRef
		)
		if err := rows.Scan(&id, &platform, &state, &ref.Value, &ref.URL, &ref.LastError, &ref.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan external ref: %w", err)
		}
		parsed, err := rental.ParseRefState(state)
		if err != nil {
			return nil, err
		}
		ref.State = parsed

		if out[id] == nil {
			out[id] = make(map[rental.Platform]rental.ExternalRef)
		}
		out[id][rental.Platform(platform)] = ref
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate external refs: %w", err)
	}
	return out, nil
}

func scanApartment(row pgx.Row) (rental.Apartment, error) {
	var (
		apt    rental.Apartment
		status string
	)

	if err := row.Scan(
		&apt.ID, &apt.OwnerID, &apt.Title, &apt.Address, &apt.Street, &apt.StreetNumber, &apt.PostalCode, &apt.City,
		&apt.Price, &apt.AreaM2, &apt.Description, &apt.PhotoURLs, &status, &apt.ContractEndDate, &apt.AvailableFrom,
		&apt.Latitude, &apt.Longitude, &apt.OtodomCityID, &apt.OtodomStreetName, &apt.CreatedAt, &apt.UpdatedAt,
	); err != nil {
		return rental.Apartment{}, err
	}

	apt.Status = rental.Status(status)
	return apt, nil
}
