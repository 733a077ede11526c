// Package quote maps authorized-capital brackets to the fixed
// incorporation cost breakdown quoted to clients. The table is copied
// into invoice line items at creation time; invoices are never
// recalculated from it afterwards.
package quote

import (
	"errors"
	"fmt"
)

// Bracket is an authorized-capital tier. The set is closed.
type Bracket string

const (
	Bracket5Lakh   Bracket = "5_lakh"
	Bracket10Lakh  Bracket = "10_lakh"
	Bracket25Lakh  Bracket = "25_lakh"
	Bracket50Lakh  Bracket = "50_lakh"
	Bracket1Crore  Bracket = "1_crore"
	Bracket2Crore  Bracket = "2_crore"
	Bracket5Crore  Bracket = "5_crore"
	Bracket10Crore Bracket = "10_crore"
)

var ErrUnknownBracket = errors.New("unknown_bracket")

// FeeComponent is a single named government fee. Amounts are BDT.
type FeeComponent struct {
	Code   string `json:"code"`
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// Breakdown is the full quoted cost for one bracket.
type Breakdown struct {
	Bracket    Bracket        `json:"bracket"`
	GovtFees   []FeeComponent `json:"govt_fees"`
	GovtTotal  int64          `json:"govt_total"`
	ServiceFee int64          `json:"service_fee"`
	GrandTotal int64          `json:"grand_total"`
}

type bracketFees struct {
	registration int64
	filing       int64
	stampDuty    int64
	serviceFee   int64
}

const nameClearanceFee = 230

var feeTable = map[Bracket]bracketFees{
	Bracket5Lakh:   {registration: 2850, filing: 1170, stampDuty: 2020, serviceFee: 12000},
	Bracket10Lakh:  {registration: 4870, filing: 1800, stampDuty: 2770, serviceFee: 15000},
	Bracket25Lakh:  {registration: 9210, filing: 2400, stampDuty: 3020, serviceFee: 18000},
	Bracket50Lakh:  {registration: 16125, filing: 3600, stampDuty: 3270, serviceFee: 20000},
	Bracket1Crore:  {registration: 38593, filing: 4835, stampDuty: 3500, serviceFee: 25000},
	Bracket2Crore:  {registration: 62275, filing: 6030, stampDuty: 3770, serviceFee: 30000},
	Bracket5Crore:  {registration: 118575, filing: 8450, stampDuty: 4020, serviceFee: 40000},
	Bracket10Crore: {registration: 212850, filing: 11280, stampDuty: 4270, serviceFee: 50000},
}

// Brackets returns the closed set of brackets in ascending capital order.
func Brackets() []Bracket {
	return []Bracket{
		Bracket5Lakh,
		Bracket10Lakh,
		Bracket25Lakh,
		Bracket50Lakh,
		Bracket1Crore,
		Bracket2Crore,
		Bracket5Crore,
		Bracket10Crore,
	}
}

// Lookup returns the immutable cost breakdown for a bracket. Unknown
// keys fail loudly; there is no default bracket.
func Lookup(bracket Bracket) (Breakdown, error) {
	fees, ok := feeTable[bracket]
	if !ok {
		return Breakdown{}, fmt.Errorf("%w: %q", ErrUnknownBracket, bracket)
	}

	components := []FeeComponent{
		{Code: "name_clearance", Label: "Name clearance", Amount: nameClearanceFee},
		{Code: "registration_fee", Label: "Registration fee", Amount: fees.registration},
		{Code: "filing_fee", Label: "Filing fee", Amount: fees.filing},
		{Code: "stamp_duty", Label: "Stamp duty", Amount: fees.stampDuty},
	}

	var govtTotal int64
	for _, c := range components {
		govtTotal += c.Amount
	}

	return Breakdown{
		Bracket:    bracket,
		GovtFees:   components,
		GovtTotal:  govtTotal,
		ServiceFee: fees.serviceFee,
		GrandTotal: govtTotal + fees.serviceFee,
	}, nil
}
