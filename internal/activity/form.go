package activity

import "ringline/internal/domain"

// Form holds the values the user is editing. It is cleared back to its
// defaults after a successful call and kept as typed after a failure.
type Form struct {
	Defaults domain.CallRequest
	Values   domain.CallRequest
}

func NewForm(defaults domain.CallRequest) Form {
	return Form{Defaults: defaults, Values: defaults}
}

func (f *Form) reset() { f.Values = f.Defaults }
