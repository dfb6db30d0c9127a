package ingest

import (
	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/rs/zerolog/log"
)

const tableSKUMaster = "sku_master"

// ReadSKUMaster loads the SKU master. Rows failing validation are skipped with a warning.
func ReadSKUMaster(path string) (*domain.SKUMaster, error) {
	t, err := readCSV(path, tableSKUMaster)
	if err != nil {
		return nil, err
	}
	return skuMasterFromTable(t)
}

func skuMasterFromTable(t *rawTable) (*domain.SKUMaster, error) {
	idx, err := t.require(
		[]string{"sku", "sku_id", "item"},
		[]string{"cost", "unit_cost"},
	)
	if err != nil {
		return nil, err
	}
	iSKU, iCost := idx[0], idx[1]
	iDesc := t.col("description", "name", "item_name")
	iCat := t.col("category")
	iPrice := t.col("price", "unit_price")
	iLead := t.col("lead_time_days", "lead_time")
	iSupplier := t.col("supplier")
	iUOM := t.col("uom")
	iActive := t.col("active")
	iMOQ := t.col("min_order_qty", "moq", "min_order")

	v := validatorInstance()
	items := make([]domain.SKU, 0, len(t.records))
	for n, rec := range t.records {
		sku := domain.SKU{
			SKU:         cell(rec, iSKU),
			Description: cell(rec, iDesc),
			Category:    cell(rec, iCat),
			Supplier:    cell(rec, iSupplier),
			UOM:         cell(rec, iUOM),
			Active:      iActive < 0 || parseBool(cell(rec, iActive)),
		}
		sku.Cost, _ = parseNumber(cell(rec, iCost))
		sku.Price, _ = parseNumber(cell(rec, iPrice))
		if lt, err := parseNumber(cell(rec, iLead)); err == nil {
			sku.LeadTimeDays = int(lt)
		}
		if moq, err := parseNumber(cell(rec, iMOQ)); err == nil {
			sku.MinOrderQty = int(moq)
		}

		if err := v.Struct(sku); err != nil {
			log.Warn().Int("row", n+2).Str("sku", sku.SKU).Str("detail", validationDetail(err)).
				Msg("ingest: skipping invalid sku master row")
			continue
		}
		items = append(items, sku)
	}

	log.Info().Int("skus", len(items)).Msg("ingest: sku master loaded")
	return domain.NewSKUMaster(items), nil
}
