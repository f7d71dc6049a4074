package pipeline

import (
	"context"
	"fmt"

	"github.com/ohmyjons/simple-elt/internal/warehouse"
	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// ViewQuery derives the financial metrics from the analytics table.
//
//	gross_sales = units_sold * sale_price
//	discounts   = gross_sales * discount_percentage
//	sales       = gross_sales - discounts
//	cogs        = units_sold * manufacturing_price
//	profit      = sales - cogs
func ViewQuery(d warehouse.Dialect, source warehouse.TableRef) string {
	q := d.QuoteIdent
	gross := fmt.Sprintf("(%s * %s)", q("units_sold"), q("sale_price"))
	discounts := fmt.Sprintf("(%s * %s)", gross, q("discount_percentage"))
	sales := fmt.Sprintf("(%s - %s)", gross, discounts)
	cogs := fmt.Sprintf("(%s * %s)", q("units_sold"), q("manufacturing_price"))

	return fmt.Sprintf(`SELECT
  %s,
  %s,
  %s,
  %s,
  %s,
  %s,
  %s,
  %s,
  %s,
  %s AS %s,
  %s AS %s,
  %s AS %s,
  %s AS %s,
  %s - %s AS %s
FROM %s`,
		q("date"), q("segment"), q("country"), q("product"), q("discount_band"),
		q("discount_percentage"), q("units_sold"), q("manufacturing_price"), q("sale_price"),
		gross, q("gross_sales"),
		discounts, q("discounts"),
		sales, q("sales"),
		cogs, q("cogs"),
		sales, cogs, q("profit"),
		d.TableName(source))
}

// TransformStage defines the derived-metrics view over the analytics table.
type TransformStage struct {
	Warehouse    warehouse.Warehouse
	Source       warehouse.TableRef
	View         warehouse.TableRef
	UseLegacySQL bool
	Disposition  elt.ViewDisposition
	Logger       elt.Logger
}

func (s *TransformStage) Name() string { return "transform" }

func (s *TransformStage) Phase() State { return StateTransforming }

func (s *TransformStage) Run(ctx context.Context) (Artifact, error) {
	def := warehouse.ViewDefinition{
		View:         s.View,
		Query:        ViewQuery(s.Warehouse.Dialect(s.UseLegacySQL), s.Source),
		UseLegacySQL: s.UseLegacySQL,
		Disposition:  s.Disposition,
	}
	s.Logger.Verbose("transform: view %s (%s):\n%s", def.View, def.Disposition, def.Query)

	res, err := s.Warehouse.CreateView(ctx, def)
	if err != nil {
		return Artifact{}, err
	}

	s.Logger.Info("view %s %s", res.View, res.Action)
	return Artifact{Location: res.View.String(), Action: string(res.Action)}, nil
}
