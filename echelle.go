// Package echelle loads, plots and re-saves echelle spectra that are stored as
// a collection of 1D spectra, one per spectral order.
package echelle

import (
	"fmt"
	"reflect"

	"github.com/astrogo/fitsio"
	"github.com/carbocation/echelle/figure"
	"github.com/carbocation/echelle/spectrum"
)

// Order is what the collection needs from the spectrum of a single echelle
// order. *spectrum.Spec1d is the canonical implementation.
type Order interface {
	Len() int
	Wavelength() []float64
	Flux() []float64
	Plot(ax *figure.Axes, opts spectrum.PlotOptions) error
	Smooth(ax *figure.Axes, width int, opts spectrum.PlotOptions) error
	MarkLines(ax *figure.Axes, list string, z float64, opts spectrum.MarkOptions) error
	Table(name string) (*fitsio.Table, error)
}

var _ Order = (*spectrum.Spec1d)(nil)

// TypeMismatchError reports a list element that is not an Order.
type TypeMismatchError struct {
	Index int
	Value interface{}
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("echelle: element %d is %T, not an echelle order spectrum", e.Index, e.Value)
}

// Echelle is an ordered collection of order spectra. The position of an order
// in the collection is its order index, which need not be the physical order
// number. Orders are never reordered.
type Echelle struct {
	orders []Order
}

// New builds a collection from orders, keeping their order.
func New(orders ...Order) (*Echelle, error) {
	e := &Echelle{orders: make([]Order, 0, len(orders))}
	for _, o := range orders {
		if err := e.Append(o); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// FromList builds a collection from arbitrary values, each of which must be a
// non-nil Order. The first value that is not gives a *TypeMismatchError and
// no collection.
func FromList(items []interface{}) (*Echelle, error) {
	e := &Echelle{orders: make([]Order, 0, len(items))}
	for i, v := range items {
		o, ok := asOrder(v)
		if !ok {
			return nil, &TypeMismatchError{Index: i, Value: v}
		}
		e.orders = append(e.orders, o)
	}

	return e, nil
}

// Append adds v to the end of the collection if it is a non-nil Order.
func (e *Echelle) Append(v interface{}) error {
	o, ok := asOrder(v)
	if !ok {
		return &TypeMismatchError{Index: len(e.orders), Value: v}
	}
	e.orders = append(e.orders, o)

	return nil
}

func (e *Echelle) Len() int {
	return len(e.orders)
}

// At returns the i'th order.
func (e *Echelle) At(i int) Order {
	return e.orders[i]
}

// Orders returns a copy of the order slice.
func (e *Echelle) Orders() []Order {
	out := make([]Order, len(e.orders))
	copy(out, e.orders)
	return out
}

func asOrder(v interface{}) (Order, bool) {
	o, ok := v.(Order)
	if !ok || o == nil {
		return nil, false
	}

	// A typed nil pointer satisfies the interface but cannot be used.
	if rv := reflect.ValueOf(o); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, false
	}

	return o, true
}
