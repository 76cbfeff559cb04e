package models

// Reference lists offered by the forms and enforced by the services.
var (
	Categories     = []string{"Clothing", "Accessories", "Other"}
	Sizes          = []string{"XS", "S", "M", "L", "XL", "XXL", "One Size"}
	Channels       = []string{"Store", "Online", "WhatsApp"}
	PaymentMethods = []string{"Pix", "Cash", "Card"}
)

// DefaultCustomer is recorded when checkout has no customer name.
const DefaultCustomer = "Walk-in"
