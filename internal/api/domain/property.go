package domain

import "errors"

const (
	PropertyTypeHouse      = "house"
	PropertyTypeApartment  = "apartment"
	PropertyTypeCondo      = "condo"
	PropertyTypeTownhouse  = "townhouse"
	PropertyTypeLand       = "land"
	PropertyTypeCommercial = "commercial"
)

const (
	PropertyStatusAvailable     = "available"
	PropertyStatusSold          = "sold"
	PropertyStatusUnderContract = "under_contract"
	PropertyStatusOffMarket     = "off_market"
)

const DefaultCountry = "USA"

var PropertyTypes = []string{
	PropertyTypeHouse,
	PropertyTypeApartment,
	PropertyTypeCondo,
	PropertyTypeTownhouse,
	PropertyTypeLand,
	PropertyTypeCommercial,
}

var PropertyStatuses = []string{
	PropertyStatusAvailable,
	PropertyStatusSold,
	PropertyStatusUnderContract,
	PropertyStatusOffMarket,
}

// Agent is the authenticated caller, resolved from gateway headers
type Agent struct {
	ID    string
	Email string
	Name  string
}

var (
	ErrPropertyNotFound = errors.New("property not found")
)
