package memory

import (
	"context"
	"sort"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain"
	"backoffice/internal/domain/documents/sales_invoice"
	"backoffice/internal/domain/documents/stock_correction"
	"backoffice/internal/domain/form"
)

// StockCorrections returns the stock correction repository.
func (s *Store) StockCorrections() stock_correction.Repository { return stockCorrectionRepo{s} }

// SalesInvoices returns the sales invoice repository.
func (s *Store) SalesInvoices() sales_invoice.Repository { return salesInvoiceRepo{s} }

// --- stock corrections ---

type stockCorrectionRepo struct{ s *Store }

func (r stockCorrectionRepo) Create(_ context.Context, sc *stock_correction.StockCorrection) error {
	var dup bool
	r.s.write(func(st *state) {
		if _, dup = st.stockCorrections[sc.ID]; !dup {
			st.stockCorrections[sc.ID] = copyStockCorrection(sc)
		}
	})
	if dup {
		return apperror.NewDuplicate("Stock correction", "id", sc.ID.String())
	}
	return nil
}

func (r stockCorrectionRepo) GetByID(_ context.Context, docID id.ID) (*stock_correction.StockCorrection, error) {
	var out *stock_correction.StockCorrection
	r.s.read(func(st *state) {
		if d, ok := st.stockCorrections[docID]; ok {
			out = copyStockCorrection(d)
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("Stock correction", docID)
	}
	return out, nil
}

func (r stockCorrectionRepo) GetForUpdate(ctx context.Context, docID id.ID) (*stock_correction.StockCorrection, error) {
	return r.GetByID(ctx, docID)
}

func (r stockCorrectionRepo) SaveForm(_ context.Context, f *form.Form) error {
	return r.s.update(func(st *state) bool {
		d, ok := st.stockCorrections[f.FormableID]
		if ok {
			d.Form = *f
		}
		return ok
	}, f.FormableID)
}

func (r stockCorrectionRepo) SaveSnapshots(_ context.Context, sc *stock_correction.StockCorrection) error {
	return r.s.update(func(st *state) bool {
		d, ok := st.stockCorrections[sc.ID]
		if !ok {
			return false
		}
		for i := range d.Items {
			for _, in := range sc.Items {
				if in.ID == d.Items[i].ID {
					d.Items[i].InitialStock = in.InitialStock
					d.Items[i].FinalStock = in.FinalStock
				}
			}
		}
		return true
	}, sc.ID)
}

func (r stockCorrectionRepo) ReplaceItems(_ context.Context, sc *stock_correction.StockCorrection) error {
	return r.s.update(func(st *state) bool {
		d, ok := st.stockCorrections[sc.ID]
		if ok {
			d.Items = append(d.Items[:0:0], sc.Items...)
		}
		return ok
	}, sc.ID)
}

func (r stockCorrectionRepo) List(_ context.Context, f domain.ListFilter) (domain.ListResult[*stock_correction.StockCorrection], error) {
	var all []*stock_correction.StockCorrection
	r.s.read(func(st *state) {
		for _, d := range st.stockCorrections {
			if st.listed(&d.Form, d.WarehouseID, f) {
				all = append(all, copyStockCorrection(d))
			}
		}
	})
	sort.Slice(all, func(i, j int) bool { return byCreatedDesc(&all[i].Form, &all[j].Form) })
	return domain.Paginate(all, f), nil
}

// --- sales invoices ---

type salesInvoiceRepo struct{ s *Store }

func (r salesInvoiceRepo) Create(_ context.Context, inv *sales_invoice.SalesInvoice) error {
	var dup bool
	r.s.write(func(st *state) {
		if _, dup = st.salesInvoices[inv.ID]; !dup {
			st.salesInvoices[inv.ID] = copySalesInvoice(inv)
		}
	})
	if dup {
		return apperror.NewDuplicate("Sales invoice", "id", inv.ID.String())
	}
	return nil
}

func (r salesInvoiceRepo) GetByID(_ context.Context, docID id.ID) (*sales_invoice.SalesInvoice, error) {
	var out *sales_invoice.SalesInvoice
	r.s.read(func(st *state) {
		if d, ok := st.salesInvoices[docID]; ok {
			out = copySalesInvoice(d)
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("Sales invoice", docID)
	}
	return out, nil
}

func (r salesInvoiceRepo) GetForUpdate(ctx context.Context, docID id.ID) (*sales_invoice.SalesInvoice, error) {
	return r.GetByID(ctx, docID)
}

func (r salesInvoiceRepo) Save(_ context.Context, inv *sales_invoice.SalesInvoice) error {
	return r.s.update(func(st *state) bool {
		if _, ok := st.salesInvoices[inv.ID]; !ok {
			return false
		}
		st.salesInvoices[inv.ID] = copySalesInvoice(inv)
		return true
	}, inv.ID)
}

func (r salesInvoiceRepo) SaveForm(_ context.Context, f *form.Form) error {
	return r.s.update(func(st *state) bool {
		d, ok := st.salesInvoices[f.FormableID]
		if ok {
			d.Form = *f
		}
		return ok
	}, f.FormableID)
}

func (r salesInvoiceRepo) SaveSnapshots(_ context.Context, inv *sales_invoice.SalesInvoice) error {
	return r.s.update(func(st *state) bool {
		d, ok := st.salesInvoices[inv.ID]
		if !ok {
			return false
		}
		for i := range d.Items {
			for _, in := range inv.Items {
				if in.ID == d.Items[i].ID {
					d.Items[i].InitialStock = in.InitialStock
					d.Items[i].FinalStock = in.FinalStock
				}
			}
		}
		return true
	}, inv.ID)
}

func (r salesInvoiceRepo) List(_ context.Context, f domain.ListFilter) (domain.ListResult[*sales_invoice.SalesInvoice], error) {
	var all []*sales_invoice.SalesInvoice
	r.s.read(func(st *state) {
		for _, d := range st.salesInvoices {
			if st.listed(&d.Form, d.WarehouseID, f) {
				all = append(all, copySalesInvoice(d))
			}
		}
	})
	sort.Slice(all, func(i, j int) bool { return byCreatedDesc(&all[i].Form, &all[j].Form) })
	return domain.Paginate(all, f), nil
}

// listed applies the date window, the status filter and filter_like.
func (st *state) listed(fm *form.Form, warehouseID id.ID, f domain.ListFilter) bool {
	if !f.InWindow(fm.Date) || !f.Status.Match(fm) {
		return false
	}
	return f.MatchLike(func(column string) string {
		switch column {
		case "form.number":
			return fm.Number
		case "form.notes":
			return fm.Notes
		case "warehouse.name":
			if w, ok := st.warehouses[warehouseID]; ok {
				return w.Name
			}
		}
		return ""
	})
}

// update runs fn under the write lock; fn reports whether the document exists.
func (s *Store) update(fn func(st *state) bool, docID id.ID) error {
	var ok bool
	s.write(func(st *state) { ok = fn(st) })
	if !ok {
		return apperror.NewNotFound("Document", docID)
	}
	return nil
}

// GetForm finds the form of any stored document by the form id.
func (s *Store) GetForm(_ context.Context, formID id.ID) (*form.Form, error) {
	var out *form.Form
	s.read(func(st *state) {
		for _, d := range st.stockCorrections {
			if d.Form.ID == formID {
				f := d.Form
				out = &f
				return
			}
		}
		for _, d := range st.salesInvoices {
			if d.Form.ID == formID {
				f := d.Form
				out = &f
				return
			}
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("Form", formID)
	}
	return out, nil
}

// byCreatedDesc orders forms newest first by creation time, then by number.
func byCreatedDesc(a, b *form.Form) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Number > b.Number
}
