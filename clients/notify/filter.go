package notify

// Decide is the preference filter: given an alert and the user's
// preferences it returns whether the alert surfaces and through which
// channels. Pure function with no side effects; the same
// (alert, preferences) pair always yields the same decision.
//
// An alert is suppressed when any of these hold:
//   - critical-only mode is on and the alert is not critical
//   - the risk score is below the configured threshold
//   - the severity filter for the alert's severity is off (a missing
//     entry counts as off)
//
// When an alert passes, the in-app channel is always included; the other
// channels follow their preference toggles.
func Decide(a Alert, p Preferences) Decision {
	if p.CriticalOnly && a.Severity != SeverityCritical {
		return Decision{}
	}
	if a.RiskScore < p.RiskThreshold {
		return Decision{}
	}
	if !p.SeverityFilters[a.Severity] {
		return Decision{}
	}

	channels := ChannelSet{ChannelInApp: true}
	if p.SoundAlerts {
		channels[ChannelSound] = true
	}
	if p.VibrationAlerts {
		channels[ChannelVibration] = true
	}
	if p.PushNotifications {
		channels[ChannelPush] = true
	}
	if p.EmailAlerts {
		channels[ChannelEmail] = true
	}
	if p.SMSAlerts {
		channels[ChannelSMS] = true
	}

	return Decision{Show: true, Channels: channels}
}
