package models

// Assignment statuses.
const (
	AssignmentReserved = "reserved"
	AssignmentDeployed = "deployed"
	AssignmentLoaned   = "loaned"
	AssignmentStocked  = "stocked"
)

// Lifecycle statuses.
const (
	LifecycleNew           = "new"
	LifecycleInStock       = "in_stock"
	LifecycleInUse         = "in_use"
	LifecycleInMaintenance = "in_maintenance"
	LifecycleRetired       = "retired"
	LifecycleDisposed      = "disposed"
)

// RMA statuses. All transitions are free-form; only the transition into
// completed carries a side effect.
const (
	RMAPending       = "pending"
	RMAShipped       = "shipped"
	RMAReceived      = "received"
	RMAInvestigating = "investigating"
	RMAApproved      = "approved"
	RMARejected      = "rejected"
	RMACompleted     = "completed"
)

// Contract types.
const (
	ContractSupply  = "supply"
	ContractOrder   = "order"
	ContractService = "service"
	ContractOther   = "other"
)

// Assignment target kinds.
const (
	KindSite     = "site"
	KindLocation = "location"
	KindRack     = "rack"
	KindDevice   = "device"
	KindModule   = "module"
)

var assignmentStatuses = map[string]bool{
	AssignmentReserved: true,
	AssignmentDeployed: true,
	AssignmentLoaned:   true,
	AssignmentStocked:  true,
}

var lifecycleStatuses = map[string]bool{
	LifecycleNew:           true,
	LifecycleInStock:       true,
	LifecycleInUse:         true,
	LifecycleInMaintenance: true,
	LifecycleRetired:       true,
	LifecycleDisposed:      true,
}

var rmaStatuses = map[string]bool{
	RMAPending:       true,
	RMAShipped:       true,
	RMAReceived:      true,
	RMAInvestigating: true,
	RMAApproved:      true,
	RMARejected:      true,
	RMACompleted:     true,
}

var contractTypes = map[string]bool{
	ContractSupply:  true,
	ContractOrder:   true,
	ContractService: true,
	ContractOther:   true,
}

var assignedKinds = map[string]bool{
	KindSite:     true,
	KindLocation: true,
	KindRack:     true,
	KindDevice:   true,
	KindModule:   true,
}

// ValidAssignmentStatus reports whether s is a known assignment status.
func ValidAssignmentStatus(s string) bool { return assignmentStatuses[s] }

// ValidLifecycleStatus reports whether s is a known lifecycle status.
func ValidLifecycleStatus(s string) bool { return lifecycleStatuses[s] }

// ValidRMAStatus reports whether s is a known RMA status.
func ValidRMAStatus(s string) bool { return rmaStatuses[s] }

// ValidContractType reports whether s is a known contract type.
func ValidContractType(s string) bool { return contractTypes[s] }

// ValidAssignedKind reports whether s is a known assignment target kind.
func ValidAssignedKind(s string) bool { return assignedKinds[s] }

var assignmentColors = map[string]string{
	AssignmentReserved: "orange",
	AssignmentDeployed: "green",
	AssignmentLoaned:   "blue",
	AssignmentStocked:  "teal",
}

var lifecycleColors = map[string]string{
	LifecycleNew:           "cyan",
	LifecycleInStock:       "teal",
	LifecycleInUse:         "green",
	LifecycleInMaintenance: "orange",
	LifecycleRetired:       "red",
	LifecycleDisposed:      "gray",
}

// AssignmentStatusColor maps an assignment status to its presentation color.
// Unknown values render gray.
func AssignmentStatusColor(status string) string {
	if c, ok := assignmentColors[status]; ok {
		return c
	}
	return "gray"
}

// LifecycleStatusColor maps a lifecycle status to its presentation color.
// Unknown values render gray.
func LifecycleStatusColor(status string) string {
	if c, ok := lifecycleColors[status]; ok {
		return c
	}
	return "gray"
}
