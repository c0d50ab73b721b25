package memory

import (
	"context"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/id"
	"backoffice/internal/domain/catalogs/customer"
	"backoffice/internal/domain/catalogs/item"
	"backoffice/internal/domain/catalogs/warehouse"
	"backoffice/internal/domain/documents/delivery_note"
)

// PutItem stores or replaces an item.
func (s *Store) PutItem(it *item.Item) {
	c := *it
	c.Units = append([]item.Unit(nil), it.Units...)
	s.write(func(st *state) { st.items[it.ID] = &c })
}

// PutWarehouse stores or replaces a warehouse.
func (s *Store) PutWarehouse(w *warehouse.Warehouse) {
	c := *w
	s.write(func(st *state) { st.warehouses[w.ID] = &c })
}

// PutCustomer stores or replaces a customer.
func (s *Store) PutCustomer(cu *customer.Customer) {
	c := *cu
	s.write(func(st *state) { st.customers[cu.ID] = &c })
}

// PutDeliveryNote stores or replaces a delivery note.
func (s *Store) PutDeliveryNote(d *delivery_note.DeliveryNote) {
	c := copyDeliveryNote(d)
	s.write(func(st *state) { st.deliveryNotes[d.Form.ID] = c })
}

// DeliveryNote returns a copy of the delivery note of formID.
func (s *Store) DeliveryNote(formID id.ID) (*delivery_note.DeliveryNote, bool) {
	var out *delivery_note.DeliveryNote
	s.read(func(st *state) {
		if d, ok := st.deliveryNotes[formID]; ok {
			out = copyDeliveryNote(d)
		}
	})
	return out, out != nil
}

func (s *Store) Items() item.Repository           { return itemRepo{s} }
func (s *Store) Warehouses() warehouse.Repository { return warehouseRepo{s} }
func (s *Store) Customers() customer.Repository   { return customerRepo{s} }

// DeliveryNotes returns the delivery note repository.
func (s *Store) DeliveryNotes() delivery_note.Repository { return deliveryNoteRepo{s} }

type itemRepo struct{ s *Store }

func (r itemRepo) GetByID(_ context.Context, itemID id.ID) (*item.Item, error) {
	var out *item.Item
	r.s.read(func(st *state) {
		if it, ok := st.items[itemID]; ok {
			c := *it
			out = &c
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("Item", itemID)
	}
	return out, nil
}

type warehouseRepo struct{ s *Store }

func (r warehouseRepo) GetByID(_ context.Context, warehouseID id.ID) (*warehouse.Warehouse, error) {
	var out *warehouse.Warehouse
	r.s.read(func(st *state) {
		if w, ok := st.warehouses[warehouseID]; ok {
			c := *w
			out = &c
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("Warehouse", warehouseID)
	}
	return out, nil
}

type customerRepo struct{ s *Store }

func (r customerRepo) GetByID(_ context.Context, customerID id.ID) (*customer.Customer, error) {
	var out *customer.Customer
	r.s.read(func(st *state) {
		if cu, ok := st.customers[customerID]; ok {
			c := *cu
			out = &c
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("Customer", customerID)
	}
	return out, nil
}

type deliveryNoteRepo struct{ s *Store }

func (r deliveryNoteRepo) GetPendingForUpdate(_ context.Context, formID id.ID) (*delivery_note.DeliveryNote, error) {
	var out *delivery_note.DeliveryNote
	r.s.read(func(st *state) {
		if d, ok := st.deliveryNotes[formID]; ok && !d.Form.Done {
			out = copyDeliveryNote(d)
		}
	})
	if out == nil {
		return nil, apperror.NewNotFound("Delivery note", formID)
	}
	return out, nil
}

func (r deliveryNoteRepo) SetDone(_ context.Context, formID id.ID, done bool) error {
	var found bool
	r.s.write(func(st *state) {
		if d, ok := st.deliveryNotes[formID]; ok {
			d.Form.Done = done
			found = true
		}
	})
	if !found {
		return apperror.NewNotFound("Delivery note", formID)
	}
	return nil
}
