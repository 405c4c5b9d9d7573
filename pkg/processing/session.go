package processing

import (
	"fmt"
	"strings"

	"github.com/pitwall-live/telemetry-bridge-go/pkg/model"
	"github.com/pitwall-live/telemetry-bridge-go/pkg/telemetry"
)

// currentSession resolves the session entry for the current SessionNum.
// Sessions may arrive as a list or as a mapping keyed by number.
func currentSession(frame telemetry.Frame) telemetry.Frame {
	sessInfo := frame.Map(telemetry.KeySessionInfo)
	if sessInfo == nil {
		return nil
	}
	sessNum := frame.Int(telemetry.KeySessionNum, 0)

	if sessions := sessInfo.Maps("Sessions"); sessions != nil {
		if sessNum >= 0 && sessNum < len(sessions) {
			return sessions[sessNum]
		}
		if len(sessions) > 0 {
			return sessions[0]
		}
		return nil
	}
	if byNum := sessInfo.Map("Sessions"); byNum != nil {
		return byNum.Map(fmt.Sprintf("%d", sessNum))
	}
	return nil
}

// sessionTypeOf normalizes the raw session type/name.
func sessionTypeOf(frame telemetry.Frame) model.SessionType {
	raw := "-"
	if sess := currentSession(frame); sess != nil {
		raw = sess.String("SessionType", sess.String("SessionName", "-"))
	}
	switch r := strings.ToLower(raw); {
	case strings.HasPrefix(r, "qual"):
		return model.SessionQualy
	case strings.HasPrefix(r, "prac"):
		return model.SessionPractice
	case strings.HasPrefix(r, "race"):
		return model.SessionRace
	case strings.HasPrefix(r, "warm"):
		return model.SessionWarmup
	case raw == "" || raw == "-":
		return model.SessionUnknown
	default:
		return model.SessionType(strings.ToUpper(raw))
	}
}

// trackNameOf probes WeekendInfo (nested and direct) and the current session
// for the display name, suffixing the track config unless already contained.
func trackNameOf(frame telemetry.Frame) string {
	wk := frame.Map(telemetry.KeySessionInfo).Map("WeekendInfo")
	direct := frame.Map(telemetry.KeyWeekendInfo)
	sess := currentSession(frame)

	base := firstString("-",
		wk.String("TrackDisplayName", ""),
		wk.String("TrackName", ""),
		direct.String("TrackDisplayName", ""),
		direct.String("TrackName", ""),
		sess.String("TrackDisplayName", ""),
		sess.String("TrackName", ""))

	cfg := firstString("",
		wk.String("TrackConfigName", ""),
		wk.String("TrackConfig", ""),
		direct.String("TrackConfigName", ""),
		direct.String("TrackConfig", ""),
		sess.String("TrackConfigName", ""),
		sess.String("TrackConfig", ""))

	if cfg != "" && cfg != "-" &&
		!strings.Contains(strings.ToLower(base), strings.ToLower(cfg)) {
		return fmt.Sprintf("%s (%s)", base, cfg)
	}
	return base
}

func firstString(def string, candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return def
}

// isRaining probes the session weather mapping for any positive rain value.
func isRaining(frame telemetry.Frame) bool {
	sess := currentSession(frame)
	if sess == nil {
		return false
	}
	weather := sess.Map("Weather")
	if weather == nil {
		return false
	}
	for _, key := range []string{"rain", "Rain", "RainPercent", "Precipitation"} {
		if weather.Float(key, 0) > 0 {
			return true
		}
	}
	return false
}

type resultEntry struct {
	best float64
	last float64
	laps int
}

type resultInfo struct {
	byIdx      map[int]resultEntry
	leaderLaps int
	p1Best     float64
}

// officialResults merges the session results list: best/last lap and laps
// complete keyed by car index, the leader's lap count and the session-best
// time.
func officialResults(frame telemetry.Frame) resultInfo {
	ret := resultInfo{byIdx: make(map[int]resultEntry), p1Best: sentinelBest}
	sess := currentSession(frame)
	if sess == nil {
		return ret
	}
	for _, r := range sess.Maps("ResultsPositions") {
		idx := r.Int("CarIdx", -1)
		if idx < 0 {
			continue
		}
		best := r.Float("FastestTime", 0)
		laps := r.Int("LapsComplete", 0)
		ret.byIdx[idx] = resultEntry{
			best: best,
			last: r.Float("LastTime", 0),
			laps: laps,
		}
		if r.Int("Position", 0) == 1 {
			ret.leaderLaps = laps
		}
		if best > 0 && best < ret.p1Best {
			ret.p1Best = best
		}
	}
	return ret
}

const sentinelBest = 99999.0
