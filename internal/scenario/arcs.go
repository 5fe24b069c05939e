package scenario

// BuiltIn returns the predefined training drills.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"fuel-starvation": {
			Name:        "Fuel Starvation",
			Description: "Day tank runs low under load; the watchkeeper must notice the alarm and refuel.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Start the set and wait for it to come up to speed.",
					Actions:     []string{"refuel 14", "start"},
					Triggers:    []Trigger{{Event: EventState, Match: "running", Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "Heavy load and a leaking gauge drain the tank quickly.",
					Actions:     []string{"set_load 80", "drift fuel -0.05"},
					Triggers:    []Trigger{{Event: EventAlarm, Match: "low_fuel", Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "Low fuel alarm is raised; the tank is topped up after a delay.",
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 20, Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "Tank refilled and gauge repaired.",
					Actions:     []string{"reset_sensors", "refuel 100"},
				},
			},
		},
		"oil-pressure-loss": {
			Name:        "Oil Pressure Loss",
			Description: "Lube oil pressure bleeds away until the alarm trips and the set is stopped.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Start the set and wait for lube oil pressure to build.",
					Actions:     []string{"start"},
					Triggers:    []Trigger{{Event: EventAlarmCleared, Match: "low_oil_pressure", Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "A failing pump lets oil pressure bleed away faster than it recovers.",
					Actions:     []string{"set_load 50", "drift oil -2.5"},
					Triggers:    []Trigger{{Event: EventAlarm, Match: "low_oil_pressure", Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "Low oil pressure; the set is taken offline.",
					Actions:     []string{"stop"},
					Triggers:    []Trigger{{Event: EventState, Match: "stopped", Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "Sensor replaced and alarms reset.",
					Actions:     []string{"reset_sensors", "reset_alarms"},
				},
			},
		},
		"overspeed": {
			Name:        "Overspeed",
			Description: "A governor fault races the engine past its trip speed; the set must stop itself.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Start the set.",
					Actions:     []string{"start"},
					Triggers:    []Trigger{{Event: EventState, Match: "running", Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "Light load while the governor starts hunting.",
					Actions:     []string{"set_load 40"},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 10, Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "Governor fails open.",
					Actions:     []string{"overspeed 2100"},
					Triggers:    []Trigger{{Event: EventState, Match: "stopped", Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "Overspeed trip acknowledged.",
					Actions:     []string{"ack overspeed"},
				},
			},
		},
		"overload": {
			Name:        "Overload",
			Description: "A bow thruster start pushes the set into overload until load is shed.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Start the set.",
					Actions:     []string{"start"},
					Triggers:    []Trigger{{Event: EventState, Match: "running", Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "Full load demand.",
					Actions:     []string{"set_load 100"},
					Triggers:    []Trigger{{Event: EventAlarm, Match: "overload", Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "Non-essential consumers are shed.",
					Actions:     []string{"set_load 60"},
					Triggers:    []Trigger{{Event: EventAlarmCleared, Match: "overload", Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "Load back within rating.",
				},
			},
		},
	}
}
