package telemetry

// Field names of the simulator frame. The source is opaque and keyed by
// name; these are the fields the pipeline consumes.
const (
	KeyDriverInfo        = "DriverInfo"
	KeySessionInfo       = "SessionInfo"
	KeyWeekendInfo       = "WeekendInfo"
	KeySessionNum        = "SessionNum"
	KeySessionTimeRemain = "SessionTimeRemain"
	KeyAirTemp           = "AirTemp"
	KeyTrackTemp         = "TrackTemp"
	KeyTrackTempCrew     = "TrackTempCrew"
	KeyFuelLevel         = "FuelLevel"
	KeyFuelLevelPct      = "FuelLevelPct"
	KeyIncidents         = "PlayerCarTeamIncidentCount"

	KeyCarIdxLapCompleted = "CarIdxLapCompleted"
	KeyCarIdxOnPitRoad    = "CarIdxOnPitRoad"
	KeyCarIdxLapDistPct   = "CarIdxLapDistPct"
	KeyCarIdxPosition     = "CarIdxPosition"
	KeyCarIdxBestLapTime  = "CarIdxBestLapTime"
	KeyCarIdxLastLapTime  = "CarIdxLastLapTime"
)
