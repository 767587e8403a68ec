package processor

// ValueType is the declared type for an allowed structured-extraction key.
type ValueType string

const (
	TypeString ValueType = "string"
	TypeNumber ValueType = "number"
	TypeBool   ValueType = "bool"
)

// KeySpec declares the expected type and canonical unit for one key.
type KeySpec struct {
	Type ValueType
	Unit string
}

// AllowedKeys is the structured extraction schema for power / site
// readiness documents. Keep this data-only.
var AllowedKeys = map[string]KeySpec{
	// Identity / linkage
	"doc_title":      {Type: TypeString},
	"doc_type":       {Type: TypeString},
	"project_name":   {Type: TypeString},
	"site_name":      {Type: TypeString},
	"utility_name":   {Type: TypeString},
	"developer_name": {Type: TypeString},
	"owner_name":     {Type: TypeString},

	// Location / parcel
	"site_address":   {Type: TypeString},
	"city":           {Type: TypeString},
	"state":          {Type: TypeString},
	"zip_code":       {Type: TypeString},
	"county":         {Type: TypeString},
	"apn_parcel_id":  {Type: TypeString},
	"parcel_count":   {Type: TypeNumber},
	"latitude":       {Type: TypeNumber, Unit: "deg"},
	"longitude":      {Type: TypeNumber, Unit: "deg"},
	"site_area":      {Type: TypeNumber, Unit: "ac"},
	"buildable_area": {Type: TypeNumber, Unit: "ac"},

	// Zoning / permitting
	"zoning_designation":              {Type: TypeString},
	"zoning_allows_energy_storage":    {Type: TypeBool},
	"conditional_use_permit_required": {Type: TypeBool},
	"permitting_authority":            {Type: TypeString},
	"fire_marshal_required":           {Type: TypeBool},
	"environmental_review_required":   {Type: TypeBool},
	"setback_requirement":             {Type: TypeNumber, Unit: "ft"},
	"flood_zone":                      {Type: TypeString},
	"wetlands_present":                {Type: TypeBool},
	"hazmat_risk_present":             {Type: TypeBool},
	"noise_limit":                     {Type: TypeNumber, Unit: "dBA"},

	// Electrical service (existing)
	"service_voltage":                   {Type: TypeNumber, Unit: "kV"},
	"service_phase":                     {Type: TypeString},
	"service_three_phase_available":     {Type: TypeBool},
	"service_capacity_existing":         {Type: TypeNumber, Unit: "kW"},
	"service_capacity_upgrade_possible": {Type: TypeBool},
	"meter_present":                     {Type: TypeBool},
	"service_drop_type":                 {Type: TypeString},
	"main_switchgear_present":           {Type: TypeBool},
	"switchgear_rating":                 {Type: TypeNumber, Unit: "A"},
	"breaker_rating":                    {Type: TypeNumber, Unit: "A"},
	"power_quality_issues_reported":     {Type: TypeBool},

	// Transformer / substation / feeder
	"transformer_present":           {Type: TypeBool},
	"transformer_count":             {Type: TypeNumber},
	"transformer_kva":               {Type: TypeNumber, Unit: "kVA"},
	"transformer_primary_voltage":   {Type: TypeNumber, Unit: "kV"},
	"transformer_secondary_voltage": {Type: TypeNumber, Unit: "V"},
	"substation_name":               {Type: TypeString},
	"substation_distance":           {Type: TypeNumber, Unit: "mi"},
	"feeder_id":                     {Type: TypeString},
	"circuit_id":                    {Type: TypeString},
	"interconnection_point":         {Type: TypeString},
	"interconnect_voltage":          {Type: TypeNumber, Unit: "kV"},
	"available_capacity":            {Type: TypeNumber, Unit: "MW"},
	"thermal_limit_binding":         {Type: TypeBool},
	"voltage_limit_binding":         {Type: TypeBool},
	"protection_upgrade_required":   {Type: TypeBool},

	// Interconnection process / queue
	"interconnection_request_id":    {Type: TypeString},
	"queue_position":                {Type: TypeString},
	"study_stage":                   {Type: TypeString},
	"study_date":                    {Type: TypeString},
	"estimated_upgrade_cost":        {Type: TypeNumber, Unit: "USD"},
	"upgrade_cost_range_low":        {Type: TypeNumber, Unit: "USD"},
	"upgrade_cost_range_high":       {Type: TypeNumber, Unit: "USD"},
	"estimated_timeline_months":     {Type: TypeNumber, Unit: "mo"},
	"utility_construction_required": {Type: TypeBool},
	"network_upgrade_required":      {Type: TypeBool},
	"distribution_upgrade_required": {Type: TypeBool},

	// Load / usage
	"annual_energy_kwh":  {Type: TypeNumber, Unit: "kWh"},
	"monthly_energy_kwh": {Type: TypeNumber, Unit: "kWh"},
	"peak_demand_kw":     {Type: TypeNumber, Unit: "kW"},
	"average_demand_kw":  {Type: TypeNumber, Unit: "kW"},
	"load_factor":        {Type: TypeNumber},
	"rate_tariff":        {Type: TypeString},

	// BESS / generator / equipment
	"bess_present":       {Type: TypeBool},
	"bess_power_mw":      {Type: TypeNumber, Unit: "MW"},
	"bess_energy_mwh":    {Type: TypeNumber, Unit: "MWh"},
	"inverter_count":     {Type: TypeNumber},
	"inverter_rating_kw": {Type: TypeNumber, Unit: "kW"},
	"pcs_present":        {Type: TypeBool},
	"generator_present":  {Type: TypeBool},
	"generator_count":    {Type: TypeNumber},
	"generator_power_kw": {Type: TypeNumber, Unit: "kW"},
	"fuel_type":          {Type: TypeString},

	// Constructability
	"site_access_road_present": {Type: TypeBool},
	"truck_access_possible":    {Type: TypeBool},
	"crane_access_possible":    {Type: TypeBool},
	"fence_present":            {Type: TypeBool},
	"site_secured":             {Type: TypeBool},
	"grading_required":         {Type: TypeBool},
	"slope_percent":            {Type: TypeNumber, Unit: "%"},

	// Notes
	"summary":    {Type: TypeString},
	"red_flags":  {Type: TypeString},
	"next_steps": {Type: TypeString},
}
