package models

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgent  Role = "agent"
	RoleOwner  Role = "owner"
	RoleTenant Role = "tenant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleOwner, RoleTenant:
		return true
	}
	return false
}

// Staff roles see and manage every record.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleAgent
}

type PropertyType string

const (
	PropertyApartment  PropertyType = "apartment"
	PropertyHouse      PropertyType = "house"
	PropertyOffice     PropertyType = "office"
	PropertyCommercial PropertyType = "commercial"
)

func (t PropertyType) Valid() bool {
	switch t {
	case PropertyApartment, PropertyHouse, PropertyOffice, PropertyCommercial:
		return true
	}
	return false
}

type PropertyStatus string

const (
	PropertyAvailable   PropertyStatus = "available"
	PropertyRented      PropertyStatus = "rented"
	PropertyMaintenance PropertyStatus = "maintenance"
	PropertySold        PropertyStatus = "sold"
)

func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyAvailable, PropertyRented, PropertyMaintenance, PropertySold:
		return true
	}
	return false
}

type ContractType string

const (
	ContractRental ContractType = "rental"
	ContractSale   ContractType = "sale"
)

func (t ContractType) Valid() bool {
	return t == ContractRental || t == ContractSale
}

type ContractStatus string

const (
	ContractPending    ContractStatus = "pending"
	ContractActive     ContractStatus = "active"
	ContractExpired    ContractStatus = "expired"
	ContractTerminated ContractStatus = "terminated"
)

func (s ContractStatus) Valid() bool {
	switch s {
	case ContractPending, ContractActive, ContractExpired, ContractTerminated:
		return true
	}
	return false
}

// Live contracts hold their property in the rented state.
func (s ContractStatus) Live() bool {
	return s == ContractPending || s == ContractActive
}

type PaymentType string

const (
	PaymentRent        PaymentType = "rent"
	PaymentDeposit     PaymentType = "deposit"
	PaymentCharges     PaymentType = "charges"
	PaymentMaintenance PaymentType = "maintenance"
	PaymentOther       PaymentType = "other"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentRent, PaymentDeposit, PaymentCharges, PaymentMaintenance, PaymentOther:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentOverdue   PaymentStatus = "overdue"
	PaymentCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentOverdue, PaymentCancelled:
		return true
	}
	return false
}

type MaintenanceType string

const (
	MaintenanceRepair     MaintenanceType = "repair"
	MaintenanceRenovation MaintenanceType = "renovation"
	MaintenanceInspection MaintenanceType = "inspection"
	MaintenanceEmergency  MaintenanceType = "emergency"
	MaintenanceOther      MaintenanceType = "other"
)

func (t MaintenanceType) Valid() bool {
	switch t {
	case MaintenanceRepair, MaintenanceRenovation, MaintenanceInspection, MaintenanceEmergency, MaintenanceOther:
		return true
	}
	return false
}

type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "pending"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenancePending, MaintenanceInProgress, MaintenanceCompleted, MaintenanceCancelled:
		return true
	}
	return false
}

const (
	MinPriority        = 1
	MaxPriority        = 5
	HighPriorityFloor  = 4
	DefaultPriority    = 1
	MinPaymentDay      = 1
	MaxPaymentDay      = 31
	ExpiringWindowDays = 30
)
