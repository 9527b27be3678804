// internal/services/attribution_service.go
package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/daviddelgadop/greencart-backend/internal/config"
	"github.com/daviddelgadop/greencart-backend/internal/models"
)

// Weighting selects how a line's revenue and impact are split across the
// companies behind its components.
type Weighting string

const (
	// WeightingQuantity weights by per-bundle component quantity.
	WeightingQuantity Weighting = "quantity"
	// WeightingPrice weights by each component's price contribution
	// (unit price × per-bundle quantity).
	WeightingPrice Weighting = "price"
)

// GroupBy is the reporting dimension attribution rows are keyed by.
type GroupBy string

const (
	GroupByProducer GroupBy = "producer"
	GroupByCompany  GroupBy = "company"
	GroupByCategory GroupBy = "category"
	GroupByProduct  GroupBy = "product"
	GroupByMonth    GroupBy = "month"
	GroupByRegion   GroupBy = "region"
)

// ResolutionSource enumerates where a component's attribution data came
// from. The resolver tries each source in declaration order.
type ResolutionSource string

const (
	// SourceSnapshotV2 is a snapshot carrying company/producer identity
	// per component.
	SourceSnapshotV2 ResolutionSource = "snapshot_v2"
	// SourceSnapshotV1 is an older snapshot carrying only bundle-level
	// company/producer identity, applied to every component.
	SourceSnapshotV1 ResolutionSource = "snapshot_v1"
	// SourceLiveGraph is the live bundle→product→company→owner walk, a
	// best-effort fallback when no snapshot exists.
	SourceLiveGraph ResolutionSource = "live_graph"
	// SourceUnresolved marks a component excluded from attribution.
	SourceUnresolved ResolutionSource = "unresolved"
)

// ResolvedComponent is the typed result of resolving one bundle component
// for attribution.
type ResolvedComponent struct {
	Source            ResolutionSource
	ProductID         *uuid.UUID
	ProductTitle      string
	CategoryID        *uuid.UUID
	CategoryName      string
	CompanyID         *uuid.UUID
	CompanyName       string
	ProducerID        *uuid.UUID
	ProducerName      string
	PerBundleQuantity int
	UnitPrice         float64
}

// Attributed reports whether the component carries enough identity to be
// assigned to a producer/company bucket.
func (r *ResolvedComponent) Attributed() bool {
	return r.Source != SourceUnresolved && (r.CompanyID != nil || r.ProducerID != nil)
}

// LiveGraphLoader fetches the live bundle graph for fallback resolution.
// It returns (nil, nil) when the bundle no longer exists.
type LiveGraphLoader func(bundleID uuid.UUID) (*models.Bundle, error)

// ResolveComponents resolves one order line. Precedence is fixed: versioned
// snapshot with per-component identity, then bundle-level snapshot identity,
// then the live graph, then unresolved.
func ResolveComponents(item *models.OrderItem, loader LiveGraphLoader) ([]ResolvedComponent, ResolutionSource, error) {
	snapshot := item.BundleSnapshot

	if snapshot != nil && len(snapshot.Components) > 0 {
		source := SourceSnapshotV1
		if snapshot.SchemaVersion >= 2 {
			source = SourceSnapshotV2
		}

		resolved := make([]ResolvedComponent, 0, len(snapshot.Components))
		for i := range snapshot.Components {
			sc := &snapshot.Components[i]
			productID := sc.ProductID

			rc := ResolvedComponent{
				Source:            source,
				ProductID:         &productID,
				ProductTitle:      sc.ProductTitle,
				CategoryID:        sc.CategoryID,
				CategoryName:      sc.CategoryName,
				CompanyID:         sc.CompanyID,
				CompanyName:       sc.CompanyName,
				ProducerID:        sc.ProducerID,
				ProducerName:      sc.ProducerName,
				PerBundleQuantity: sc.PerBundleQuantity,
				UnitPrice:         sc.UnitPrice,
			}

			// Older records only carry bundle-level identity.
			if rc.CompanyID == nil && snapshot.CompanyID != nil {
				rc.Source = SourceSnapshotV1
				rc.CompanyID = snapshot.CompanyID
				rc.CompanyName = snapshot.CompanyName
				rc.ProducerID = snapshot.ProducerID
				rc.ProducerName = snapshot.ProducerName
			}

			if !rc.Attributed() {
				rc.Source = SourceUnresolved
			}

			resolved = append(resolved, rc)
		}
		return resolved, source, nil
	}

	if item.BundleID == nil || loader == nil {
		return nil, SourceUnresolved, nil
	}

	bundle, err := loader(*item.BundleID)
	if err != nil {
		return nil, SourceUnresolved, err
	}
	if bundle == nil || len(bundle.Components) == 0 {
		return nil, SourceUnresolved, nil
	}

	resolved := make([]ResolvedComponent, 0, len(bundle.Components))
	for i := range bundle.Components {
		component := &bundle.Components[i]
		product := &component.Product

		productID := component.ProductID
		rc := ResolvedComponent{
			Source:            SourceLiveGraph,
			ProductID:         &productID,
			ProductTitle:      product.Title,
			PerBundleQuantity: component.Quantity,
			UnitPrice:         product.OriginalPrice,
		}

		if product.CatalogEntry.ID != uuid.Nil {
			categoryID := product.CatalogEntry.CategoryID
			rc.CategoryID = &categoryID
			rc.CategoryName = product.CatalogEntry.Category.Label
		}
		if product.Company.ID != uuid.Nil {
			companyID := product.Company.ID
			rc.CompanyID = &companyID
			rc.CompanyName = product.Company.Name
			ownerID := product.Company.OwnerID
			rc.ProducerID = &ownerID
			rc.ProducerName = product.Company.Owner.DisplayName()
		}

		if !rc.Attributed() {
			rc.Source = SourceUnresolved
		}
		resolved = append(resolved, rc)
	}

	return resolved, SourceLiveGraph, nil
}

// AttributionRow is one reporting bucket.
type AttributionRow struct {
	Key          string     `json:"key"`
	Label        string     `json:"label"`
	CompanyID    *uuid.UUID `json:"company_id,omitempty"`
	CompanyName  string     `json:"company_name,omitempty"`
	ProducerID   *uuid.UUID `json:"producer_id,omitempty"`
	ProducerName string     `json:"producer_name,omitempty"`
	Revenue      float64    `json:"revenue"`
	WasteKg      float64    `json:"waste_kg"`
	CO2Kg        float64    `json:"co2_kg"`
	Lines        int        `json:"lines"`
}

// AttributionReport carries the grouped rows plus the revenue/impact that
// could not be attributed to any bucket. The gap between order totals and
// attributed sums is a data-quality signal, never silently folded into a
// default bucket.
type AttributionReport struct {
	GroupBy             GroupBy          `json:"group_by"`
	Weighting           Weighting        `json:"weighting"`
	Rows                []AttributionRow `json:"rows"`
	TotalRevenue        float64          `json:"total_revenue"`
	TotalWasteKg        float64          `json:"total_waste_kg"`
	TotalCO2Kg          float64          `json:"total_co2_kg"`
	UnattributedRevenue float64          `json:"unattributed_revenue"`
	UnattributedWasteKg float64          `json:"unattributed_waste_kg"`
	UnattributedCO2Kg   float64          `json:"unattributed_co2_kg"`
}

type AttributionOptions struct {
	GroupBy   GroupBy
	Weighting Weighting
}

// Reconstruct splits historical revenue and impact proportionally across the
// producers/companies behind each order line. It is pure over its inputs:
// the same orders, options, and loader output always yield the same report.
// It never mutates any store.
func Reconstruct(orders []models.Order, opts AttributionOptions, loader LiveGraphLoader) (*AttributionReport, error) {
	if opts.GroupBy == "" {
		opts.GroupBy = GroupByProducer
	}
	if opts.Weighting == "" {
		opts.Weighting = WeightingQuantity
	}

	report := &AttributionReport{GroupBy: opts.GroupBy, Weighting: opts.Weighting}
	buckets := make(map[string]*AttributionRow)

	for oi := range orders {
		order := &orders[oi]
		for ii := range order.Items {
			item := &order.Items[ii]

			report.TotalRevenue += item.TotalPrice
			report.TotalWasteKg += item.AvoidedWasteKg
			report.TotalCO2Kg += item.AvoidedCO2Kg

			resolved, _, err := ResolveComponents(item, loader)
			if err != nil {
				return nil, err
			}

			totalWeight := 0.0
			for i := range resolved {
				totalWeight += componentWeight(&resolved[i], opts.Weighting)
			}

			if totalWeight <= 0 {
				report.UnattributedRevenue += item.TotalPrice
				report.UnattributedWasteKg += item.AvoidedWasteKg
				report.UnattributedCO2Kg += item.AvoidedCO2Kg
				continue
			}

			for i := range resolved {
				rc := &resolved[i]
				share := componentWeight(rc, opts.Weighting) / totalWeight
				revenue := item.TotalPrice * share
				waste := item.AvoidedWasteKg * share
				co2 := item.AvoidedCO2Kg * share

				if !rc.Attributed() {
					report.UnattributedRevenue += revenue
					report.UnattributedWasteKg += waste
					report.UnattributedCO2Kg += co2
					continue
				}

				key, label := bucketKey(opts.GroupBy, order, item, rc)
				row, ok := buckets[key]
				if !ok {
					row = &AttributionRow{Key: key, Label: label}
					if rc.CompanyID != nil {
						row.CompanyID = rc.CompanyID
						row.CompanyName = rc.CompanyName
					}
					if rc.ProducerID != nil {
						row.ProducerID = rc.ProducerID
						row.ProducerName = rc.ProducerName
					}
					buckets[key] = row
				}

				row.Revenue += revenue
				row.WasteKg += waste
				row.CO2Kg += co2
				row.Lines++
			}
		}
	}

	report.Rows = make([]AttributionRow, 0, len(buckets))
	for _, row := range buckets {
		report.Rows = append(report.Rows, *row)
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		if report.Rows[i].Revenue != report.Rows[j].Revenue {
			return report.Rows[i].Revenue > report.Rows[j].Revenue
		}
		return report.Rows[i].Key < report.Rows[j].Key
	})

	return report, nil
}

func componentWeight(rc *ResolvedComponent, weighting Weighting) float64 {
	quantity := float64(rc.PerBundleQuantity)
	if quantity <= 0 {
		return 0
	}

	if weighting == WeightingPrice && rc.UnitPrice > 0 {
		return rc.UnitPrice * quantity
	}
	return quantity
}

func bucketKey(groupBy GroupBy, order *models.Order, item *models.OrderItem, rc *ResolvedComponent) (key, label string) {
	switch groupBy {
	case GroupByCompany:
		if rc.CompanyID != nil {
			return rc.CompanyID.String(), rc.CompanyName
		}
	case GroupByCategory:
		if rc.CategoryID != nil {
			return rc.CategoryID.String(), rc.CategoryName
		}
		return "uncategorized", "Uncategorized"
	case GroupByProduct:
		if rc.ProductID != nil {
			return rc.ProductID.String(), rc.ProductTitle
		}
	case GroupByMonth:
		month := order.CreatedAt.Format("2006-01")
		return month, month
	case GroupByRegion:
		if item.BundleSnapshot != nil && item.BundleSnapshot.Region != nil {
			return item.BundleSnapshot.Region.Code, item.BundleSnapshot.Region.Name
		}
		return "unknown", "Unknown region"
	}

	// Default: producer.
	if rc.ProducerID != nil {
		return rc.ProducerID.String(), rc.ProducerName
	}
	if rc.CompanyID != nil {
		return rc.CompanyID.String(), rc.CompanyName
	}
	return "unknown", "Unknown"
}

// AttributionService is the read-only reporting surface over historical
// orders. It takes no locks and may run concurrently with checkout traffic.
type AttributionService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewAttributionService(db *gorm.DB, cfg *config.Config) *AttributionService {
	return &AttributionService{db: db, cfg: cfg}
}

type AttributionQuery struct {
	From      *time.Time
	To        *time.Time
	GroupBy   string
	Weighting string
}

func (s *AttributionService) Report(query AttributionQuery) (*AttributionReport, error) {
	opts := AttributionOptions{
		GroupBy:   GroupBy(query.GroupBy),
		Weighting: Weighting(query.Weighting),
	}
	if opts.Weighting == "" {
		opts.Weighting = Weighting(s.cfg.Reporting.DefaultWeighting)
	}

	switch opts.GroupBy {
	case "", GroupByProducer, GroupByCompany, GroupByCategory, GroupByProduct, GroupByMonth, GroupByRegion:
	default:
		return nil, fmt.Errorf("invalid group_by: %q", query.GroupBy)
	}
	switch opts.Weighting {
	case WeightingQuantity, WeightingPrice:
	default:
		return nil, fmt.Errorf("invalid weighting: %q", query.Weighting)
	}

	dbQuery := s.db.Preload("Items").
		Where("status IN ?", []models.OrderStatus{models.OrderStatusConfirmed, models.OrderStatusDelivered})
	if query.From != nil {
		dbQuery = dbQuery.Where("created_at >= ?", *query.From)
	}
	if query.To != nil {
		dbQuery = dbQuery.Where("created_at < ?", *query.To)
	}

	var orders []models.Order
	if err := dbQuery.Order("created_at ASC").Find(&orders).Error; err != nil {
		return nil, err
	}

	return Reconstruct(orders, opts, s.liveGraphLoader())
}

func (s *AttributionService) liveGraphLoader() LiveGraphLoader {
	cache := make(map[uuid.UUID]*models.Bundle)

	return func(bundleID uuid.UUID) (*models.Bundle, error) {
		if bundle, ok := cache[bundleID]; ok {
			return bundle, nil
		}

		var bundle models.Bundle
		err := s.db.Preload("Components.Product.CatalogEntry.Category").
			Preload("Components.Product.Company.Owner").
			First(&bundle, "id = ?", bundleID).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			cache[bundleID] = nil
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		cache[bundleID] = &bundle
		return &bundle, nil
	}
}
