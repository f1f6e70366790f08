package model

// MissionStatus is the lifecycle state of a mission as reported by the API.
type MissionStatus string

const (
    MissionCreated     MissionStatus = "CREATED"
    MissionPreAssigned MissionStatus = "PRE_ASSIGNED"
    MissionAssigned    MissionStatus = "ASSIGNED"
    MissionAccepted    MissionStatus = "ACCEPTED"
    MissionInRoute     MissionStatus = "IN_ROUTE"
    MissionArrived     MissionStatus = "ARRIVED"
    MissionTowing      MissionStatus = "TOWING"
    MissionInTransit   MissionStatus = "IN_TRANSIT"
    MissionDelivered   MissionStatus = "DELIVERED"
    MissionCancelled   MissionStatus = "CANCELLED"
    MissionCompleted   MissionStatus = "COMPLETED"
)

// MissionPriority orders missions for dispatch.
type MissionPriority string

const (
    PriorityNormal MissionPriority = "NORMAL"
    PriorityHigh   MissionPriority = "HIGH"
    PriorityUrgent MissionPriority = "URGENT"
)

// MissionTypeCode identifies the kind of assistance requested.
type MissionTypeCode string

const (
    TypeTowing     MissionTypeCode = "TOWING"
    TypeTransport  MissionTypeCode = "TRANSPORT"
    TypeRepair     MissionTypeCode = "REPAIR"
    TypeAssistance MissionTypeCode = "ASSISTANCE"
    TypeTire       MissionTypeCode = "TIRE"
    TypeOther      MissionTypeCode = "OTHER"
)

// Option pairs a code with its display label.
type Option[T ~string] struct {
    Name string `json:"name"`
    Code T      `json:"code"`
}

// MissionStatuses are the statuses offered as list filters.
var MissionStatuses = []Option[MissionStatus]{
    {"Created", MissionCreated},
    {"Pre-Assigned", MissionPreAssigned},
    {"Assigned", MissionAssigned},
    {"Accepted", MissionAccepted},
    {"In Route", MissionInRoute},
    {"Arrived", MissionArrived},
    {"Towing", MissionTowing},
    {"In Transit", MissionInTransit},
    {"Delivered", MissionDelivered},
    {"Cancelled", MissionCancelled},
}

// MissionTypes are the selectable assistance kinds.
var MissionTypes = []Option[MissionTypeCode]{
    {"Towing", TypeTowing},
    {"Tire Change", TypeTire},
    {"Transport", TypeTransport},
    {"Repair", TypeRepair},
    {"Assistance", TypeAssistance},
    {"Other", TypeOther},
}

// MissionPriorities are the selectable priorities.
var MissionPriorities = []Option[MissionPriority]{
    {"Normal", PriorityNormal},
    {"High", PriorityHigh},
    {"Urgent", PriorityUrgent},
}

// KnownMissionType reports whether code is one of MissionTypes.
func KnownMissionType(code MissionTypeCode) bool {
    for _, t := range MissionTypes {
        if t.Code == code {
            return true
        }
    }
    return false
}

// MissionType is the nested type object used by the API.
type MissionType struct {
    Name        MissionTypeCode `json:"name"`
    Description string          `json:"description,omitempty"`
}

// MissionStatusHistory is one entry of a mission's audit trail.
type MissionStatusHistory struct {
    Status    string `json:"status"`
    CreatedAt string `json:"createdAt"`
    Notes     string `json:"notes"`
    CreatedBy string `json:"createdBy"`
}

// Mission is the API representation of a roadside-assistance request.
// The status field is capitalised on the wire.
type Mission struct {
    ID                   string                 `json:"id"`
    MissionType          MissionType            `json:"missionType"`
    Status               MissionStatus          `json:"MissionStatus"`
    RequesterName        string                 `json:"requesterName"`
    RequesterPhone       string                 `json:"requesterPhone"`
    VehicleMake          string                 `json:"vehicleMake"`
    VehicleModel         string                 `json:"vehicleModel"`
    VehiclePlate         string                 `json:"vehiclePlate"`
    Priority             MissionPriority        `json:"missionPriority"`
    PickupAddress        string                 `json:"pickupAddress"`
    PickupLatitude       float64                `json:"pickupLatitude"`
    PickupLongitude      float64                `json:"pickupLongitude"`
    DestinationAddress   string                 `json:"destinationAddress"`
    DestinationLatitude  float64                `json:"destinationLatitude"`
    DestinationLongitude float64                `json:"destinationLongitude"`
    Notes                string                 `json:"notes"`
    StatusHistory        []MissionStatusHistory `json:"missionStatusHistory"`
}

// MissionRequest is the body of POST /v1/missions.
type MissionRequest struct {
    ProviderReference    string          `json:"providerReference"`
    ProviderID           string          `json:"providerId"`
    MissionType          []MissionType   `json:"missionType"`
    RequesterName        string          `json:"requesterName"`
    RequesterPhone       string          `json:"requesterPhone"`
    ReceivedAt           string          `json:"receivedAt"`
    Priority             MissionPriority `json:"priority"`
    VehicleMake          string          `json:"vehicleMake"`
    VehicleModel         string          `json:"vehicleModel"`
    VehiclePlate         string          `json:"vehiclePlate"`
    PickupAddress        string          `json:"pickupAddress"`
    DestinationAddress   string          `json:"destinationAddress"`
    DestinationLatitude  float64         `json:"destinationLatitude"`
    DestinationLongitude float64         `json:"destinationLongitude"`
    PickupLatitude       float64         `json:"pickupLatitude"`
    PickupLongitude      float64         `json:"pickupLongitude"`
    Notes                string          `json:"notes"`
}

// MissionUpdateRequest is the body of PUT /v1/missions/:id.  Zero fields are
// omitted so that only the changed attributes are sent.
type MissionUpdateRequest struct {
    Status    MissionStatus   `json:"status,omitempty"`
    Priority  MissionPriority `json:"priority,omitempty"`
    DriverRef string          `json:"driverReference,omitempty"`
    Notes     string          `json:"notes,omitempty"`
}

// Provider is an insurance or assistance company missions are created for.
type Provider struct {
    ID        string `json:"id"`
    Name      string `json:"name"`
    Reference string `json:"reference,omitempty"`
}

// DriverStatus is the availability of a driver.
type DriverStatus string

const (
    DriverAvailable   DriverStatus = "AVAILABLE"
    DriverUnavailable DriverStatus = "UNAVAILABLE"
    DriverOnBreak     DriverStatus = "ON_BREAK"
    DriverOnMission   DriverStatus = "ON_MISSION"
)

// Driver is a user with the DRIVER role plus dispatch attributes.
type Driver struct {
    Reference string       `json:"reference"`
    Username  string       `json:"username"`
    Email     string       `json:"email"`
    FullName  string       `json:"fullName"`
    Status    DriverStatus `json:"status"`
    Role      Role         `json:"role"`
    Active    bool         `json:"active"`
    Zones     string       `json:"zones,omitempty"`
}
