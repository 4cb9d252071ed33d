package chat

// OrderItem is a single dish on an order in progress.
type OrderItem struct {
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`
}

// ReservationFields are extracted across turns of a reservation intent.
// Dates use YYYY-MM-DD, times HH:MM.
type ReservationFields struct {
	CustomerName    string `json:"customerName,omitempty"`
	PhoneNumber     string `json:"phoneNumber,omitempty"`
	ReservationDate string `json:"reservationDate,omitempty"`
	ReservationTime string `json:"reservationTime,omitempty"`
	NumberOfGuests  int    `json:"numberOfGuests,omitempty"`
	SpecialRequests string `json:"specialRequests,omitempty"`
}

// Complete reports whether every field required to confirm a reservation is
// present. Phone and special requests are nice-to-have, not blocking.
func (f ReservationFields) Complete() bool {
	return f.CustomerName != "" &&
		f.ReservationDate != "" &&
		f.ReservationTime != "" &&
		f.NumberOfGuests > 0
}

// OrderFields are extracted across turns of a delivery-order intent.
type OrderFields struct {
	CustomerName        string      `json:"customerName,omitempty"`
	PhoneNumber         string      `json:"phoneNumber,omitempty"`
	DeliveryAddress     string      `json:"deliveryAddress,omitempty"`
	Items               []OrderItem `json:"items,omitempty"`
	PaymentMethod       string      `json:"paymentMethod,omitempty"`
	SpecialInstructions string      `json:"specialInstructions,omitempty"`
}

// Complete reports whether the order can be placed.
func (f OrderFields) Complete() bool {
	return len(f.Items) > 0 &&
		f.DeliveryAddress != "" &&
		f.PhoneNumber != ""
}

// CollectedData accumulates structured fields across turns. Known intents get
// typed field sets; anything else lands in the Extra bag. Merges only ever
// add or overwrite fields, a field once set is never unset by extraction.
type CollectedData struct {
	Reservation *ReservationFields `json:"reservation,omitempty"`
	Order       *OrderFields       `json:"order,omitempty"`
	Extra       map[string]string  `json:"extra,omitempty"`
}

// Clone returns a deep copy. Stores hand out clones so a merge on a
// snapshot never rewrites committed state in place.
func (d CollectedData) Clone() CollectedData {
	out := CollectedData{}
	if d.Reservation != nil {
		reservation := *d.Reservation
		out.Reservation = &reservation
	}
	if d.Order != nil {
		order := *d.Order
		order.Items = append([]OrderItem(nil), d.Order.Items...)
		out.Order = &order
	}
	if d.Extra != nil {
		out.Extra = make(map[string]string, len(d.Extra))
		for k, v := range d.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// IsEmpty reports whether nothing has been collected yet.
func (d CollectedData) IsEmpty() bool {
	return d.Reservation == nil && d.Order == nil && len(d.Extra) == 0
}

// MergeReservation folds newly extracted reservation fields in, keeping any
// previously known value when the incoming one is unset.
func (d *CollectedData) MergeReservation(in ReservationFields) {
	if d.Reservation == nil {
		d.Reservation = &ReservationFields{}
	}
	if in.CustomerName != "" {
		d.Reservation.CustomerName = in.CustomerName
	}
	if in.PhoneNumber != "" {
		d.Reservation.PhoneNumber = in.PhoneNumber
	}
	if in.ReservationDate != "" {
		d.Reservation.ReservationDate = in.ReservationDate
	}
	if in.ReservationTime != "" {
		d.Reservation.ReservationTime = in.ReservationTime
	}
	if in.NumberOfGuests > 0 {
		d.Reservation.NumberOfGuests = in.NumberOfGuests
	}
	if in.SpecialRequests != "" {
		d.Reservation.SpecialRequests = in.SpecialRequests
	}
}

// MergeOrder folds newly extracted order fields in with the same
// overwrite-only-if-set semantics as MergeReservation.
func (d *CollectedData) MergeOrder(in OrderFields) {
	if d.Order == nil {
		d.Order = &OrderFields{}
	}
	if in.CustomerName != "" {
		d.Order.CustomerName = in.CustomerName
	}
	if in.PhoneNumber != "" {
		d.Order.PhoneNumber = in.PhoneNumber
	}
	if in.DeliveryAddress != "" {
		d.Order.DeliveryAddress = in.DeliveryAddress
	}
	if len(in.Items) > 0 {
		d.Order.Items = append([]OrderItem(nil), in.Items...)
	}
	if in.PaymentMethod != "" {
		d.Order.PaymentMethod = in.PaymentMethod
	}
	if in.SpecialInstructions != "" {
		d.Order.SpecialInstructions = in.SpecialInstructions
	}
}

// SetExtra records a free-form key for intents without a typed field set.
func (d *CollectedData) SetExtra(key, value string) {
	if key == "" || value == "" {
		return
	}
	if d.Extra == nil {
		d.Extra = make(map[string]string)
	}
	d.Extra[key] = value
}

// IntentComplete reports whether the required field table for the given
// multi-turn intent is satisfied. Intents without required fields are always
// complete, so they never pin classification.
func (d CollectedData) IntentComplete(intent Intent) bool {
	switch intent {
	case IntentReservation:
		return d.Reservation != nil && d.Reservation.Complete()
	case IntentOrder:
		return d.Order != nil && d.Order.Complete()
	default:
		return true
	}
}
