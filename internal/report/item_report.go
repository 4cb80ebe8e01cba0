package report

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/kugelpos/kugel-backend/internal/domain"
	"github.com/kugelpos/kugel-backend/internal/masterdata"
)

type itemAccumulator struct {
	item         domain.Item
	grossAmount  decimal.Decimal
	discAmount   decimal.Decimal
	netAmount    decimal.Decimal
	quantity     decimal.Decimal
	transactions map[int]bool
}

// BuildItemReport folds records into a category/item breakdown, grounded
// on test_item_report.py's check_item_report_data invariants
// (item.netAmount == item.grossAmount - item.discountAmount, and every
// category/grand total equals the sum of its children).
//
// mdRepo resolves each line item's category through the master-data
// store the same way the cart engine's per-cart cache does, but without
// caching: report runs are infrequent compared to cart pricing, so a
// plain per-call lookup (memoized for the duration of this one report)
// is enough.
func BuildItemReport(ctx context.Context, mdRepo *masterdata.Repository, q domain.ReportQuery, records []TransactionRecord) (*domain.ItemReport, error) {
	report := &domain.ItemReport{
		StoreCode: q.StoreCode, TerminalNo: q.TerminalNo,
		BusinessDate: q.BusinessDate, BusinessDateFrom: q.BusinessDateFrom, BusinessDateTo: q.BusinessDateTo,
		TotalGrossAmount: decimal.Zero, TotalDiscountAmount: decimal.Zero,
		TotalNetAmount: decimal.Zero, TotalQuantity: decimal.Zero,
	}

	items := map[string]*itemAccumulator{}
	var itemOrder []string
	itemCache := map[string]*domain.Item{}

	for _, rec := range records {
		t := &rec.Log
		var sign int64
		switch t.TransactionType {
		case domain.TransactionTypeNormalSales:
			if rec.Status.IsVoided {
				continue
			}
			sign = 1
		case domain.TransactionTypeReturnSales:
			if rec.Status.IsVoided {
				continue
			}
			sign = -1
		default:
			continue
		}
		signD := decimal.NewFromInt(sign)

		for _, li := range t.LineItems {
			if li.IsCancelled {
				continue
			}
			acc, ok := items[li.ItemCode]
			if !ok {
				item, err := lookupItem(ctx, mdRepo, itemCache, q.StoreCode, li.ItemCode)
				if err != nil {
					return nil, err
				}
				acc = &itemAccumulator{
					item: *item, grossAmount: decimal.Zero, discAmount: decimal.Zero,
					netAmount: decimal.Zero, quantity: decimal.Zero, transactions: map[int]bool{},
				}
				items[li.ItemCode] = acc
				itemOrder = append(itemOrder, li.ItemCode)
			}

			discSum := decimal.Zero
			for _, d := range li.Discounts {
				discSum = discSum.Add(d.Amount)
			}
			netAmount := li.Amount
			discountAmount := discSum.Mul(signD)
			grossAmount := netAmount.Add(discountAmount)

			acc.netAmount = acc.netAmount.Add(netAmount)
			acc.discAmount = acc.discAmount.Add(discountAmount)
			acc.grossAmount = acc.grossAmount.Add(grossAmount)
			acc.quantity = acc.quantity.Add(li.Quantity.Mul(signD))
			acc.transactions[t.TransactionNo] = true
		}
	}

	categories := map[string]*domain.CategorySummary{}
	var categoryOrder []string
	for _, itemCode := range itemOrder {
		acc := items[itemCode]
		catCode := acc.item.CategoryCode
		if catCode == "" {
			catCode = "UNCATEGORIZED"
		}
		cat, ok := categories[catCode]
		if !ok {
			desc := catCode
			if category, err := mdRepo.GetCategory(ctx, catCode); err == nil {
				desc = category.Description
			}
			cat = &domain.CategorySummary{CategoryCode: catCode, Description: desc}
			categories[catCode] = cat
			categoryOrder = append(categoryOrder, catCode)
		}
		item := domain.ItemSummary{
			ItemCode: itemCode, Description: acc.item.Description,
			GrossAmount: acc.grossAmount, DiscountAmount: acc.discAmount, NetAmount: acc.netAmount,
			Quantity: acc.quantity, TransactionCount: len(acc.transactions),
		}
		cat.Items = append(cat.Items, item)
		cat.GrossAmount = cat.GrossAmount.Add(item.GrossAmount)
		cat.DiscountAmount = cat.DiscountAmount.Add(item.DiscountAmount)
		cat.NetAmount = cat.NetAmount.Add(item.NetAmount)
		cat.Quantity = cat.Quantity.Add(item.Quantity)
	}

	for _, catCode := range categoryOrder {
		cat := categories[catCode]
		report.Categories = append(report.Categories, *cat)
		report.TotalGrossAmount = report.TotalGrossAmount.Add(cat.GrossAmount)
		report.TotalDiscountAmount = report.TotalDiscountAmount.Add(cat.DiscountAmount)
		report.TotalNetAmount = report.TotalNetAmount.Add(cat.NetAmount)
		report.TotalQuantity = report.TotalQuantity.Add(cat.Quantity)
		for _, item := range cat.Items {
			report.TotalTransactionCount += item.TransactionCount
		}
	}
	return report, nil
}

func lookupItem(ctx context.Context, mdRepo *masterdata.Repository, cache map[string]*domain.Item, storeCode, itemCode string) (*domain.Item, error) {
	if item, ok := cache[itemCode]; ok {
		return item, nil
	}
	item, err := mdRepo.GetItem(ctx, storeCode, itemCode)
	if err != nil {
		item = &domain.Item{StoreCode: storeCode, ItemCode: itemCode, Description: itemCode}
	}
	cache[itemCode] = item
	return item, nil
}
