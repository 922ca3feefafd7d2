package models

// Transition tables. A status absent from a table's keys is terminal.
// Every status write in the services goes through CanTransition.

var propertyTransitions = map[PropertyStatus][]PropertyStatus{
	PropertyAvailable:   {PropertyMaintenance, PropertySold, PropertyRented},
	PropertyMaintenance: {PropertyAvailable, PropertySold},
	PropertyRented:      {PropertyAvailable},
}

var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractPending: {ContractActive, ContractTerminated},
	ContractActive:  {ContractTerminated, ContractExpired},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentOverdue, PaymentCancelled},
	PaymentOverdue: {PaymentPaid, PaymentCancelled},
}

var maintenanceTransitions = map[MaintenanceStatus][]MaintenanceStatus{
	MaintenancePending:    {MaintenanceInProgress, MaintenanceCompleted, MaintenanceCancelled},
	MaintenanceInProgress: {MaintenancePending, MaintenanceCompleted, MaintenanceCancelled},
}

type status interface {
	~string
}

func allowed[S status](table map[S][]S, from, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s PropertyStatus) CanTransition(to PropertyStatus) bool {
	return allowed(propertyTransitions, s, to)
}

func (s ContractStatus) CanTransition(to ContractStatus) bool {
	return allowed(contractTransitions, s, to)
}

func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	return allowed(paymentTransitions, s, to)
}

func (s MaintenanceStatus) CanTransition(to MaintenanceStatus) bool {
	return allowed(maintenanceTransitions, s, to)
}

func (s ContractStatus) Terminal() bool    { return len(contractTransitions[s]) == 0 }
func (s PaymentStatus) Terminal() bool     { return len(paymentTransitions[s]) == 0 }
func (s MaintenanceStatus) Terminal() bool { return len(maintenanceTransitions[s]) == 0 }
