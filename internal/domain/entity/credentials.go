package entity

import "fmt"

const (
	CredentialTypeBankDetails = "bank_details"
	CredentialTypeUPIID       = "upi_id"
	CredentialTypeEmail       = "email"
	CredentialTypePhone       = "phone"
	CredentialTypeAddress     = "address"
	CredentialTypeOther       = "other"
)

type BankDetails struct {
	AccountHolder string `json:"account_holder" firestore:"accountHolder"`
	AccountNumber string `json:"account_number" firestore:"accountNumber"`
	IFSC          string `json:"ifsc,omitempty" firestore:"ifsc,omitempty"`
	BankName      string `json:"bank_name,omitempty" firestore:"bankName,omitempty"`
}

type UPIID struct {
	Handle string `json:"handle" firestore:"handle"`
}

type EmailCredential struct {
	Address  string `json:"address" firestore:"address"`
	Password string `json:"password,omitempty" firestore:"password,omitempty"`
}

type PhoneCredential struct {
	Number string `json:"number" firestore:"number"`
}

type AddressCredential struct {
	Line1      string `json:"line1" firestore:"line1"`
	Line2      string `json:"line2,omitempty" firestore:"line2,omitempty"`
	City       string `json:"city" firestore:"city"`
	State      string `json:"state,omitempty" firestore:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty" firestore:"postalCode,omitempty"`
}

// Credentials is a tagged union: Type selects which variant must be set.
// The Other map is the escape hatch for templates the known set doesn't cover.
// IsEncrypted is persisted but never true today; payloads are stored in clear.
type Credentials struct {
	Type        string             `json:"type" firestore:"type"`
	Title       string             `json:"title" firestore:"title"`
	IsEncrypted bool               `json:"is_encrypted" firestore:"isEncrypted"`
	Bank        *BankDetails       `json:"bank_details,omitempty" firestore:"bankDetails,omitempty"`
	UPI         *UPIID             `json:"upi_id,omitempty" firestore:"upiId,omitempty"`
	Email       *EmailCredential   `json:"email,omitempty" firestore:"email,omitempty"`
	Phone       *PhoneCredential   `json:"phone,omitempty" firestore:"phone,omitempty"`
	Address     *AddressCredential `json:"address,omitempty" firestore:"address,omitempty"`
	Other       map[string]string  `json:"other,omitempty" firestore:"other,omitempty"`
}

// Validate checks that the type tag is known, the title is present, and
// exactly the variant matching the tag is populated.
func (c *Credentials) Validate() error {
	if c.Title == "" {
		return fmt.Errorf("credential title is required")
	}

	switch c.Type {
	case CredentialTypeBankDetails:
		if c.Bank == nil || c.Bank.AccountHolder == "" || c.Bank.AccountNumber == "" {
			return fmt.Errorf("bank_details requires account holder and account number")
		}
	case CredentialTypeUPIID:
		if c.UPI == nil || c.UPI.Handle == "" {
			return fmt.Errorf("upi_id requires a handle")
		}
	case CredentialTypeEmail:
		if c.Email == nil || c.Email.Address == "" {
			return fmt.Errorf("email credential requires an address")
		}
	case CredentialTypePhone:
		if c.Phone == nil || c.Phone.Number == "" {
			return fmt.Errorf("phone credential requires a number")
		}
	case CredentialTypeAddress:
		if c.Address == nil || c.Address.Line1 == "" || c.Address.City == "" {
			return fmt.Errorf("address credential requires line1 and city")
		}
	case CredentialTypeOther:
		if len(c.Other) == 0 {
			return fmt.Errorf("other credential requires at least one field")
		}
	default:
		return fmt.Errorf("unknown credential type %q", c.Type)
	}

	return nil
}
