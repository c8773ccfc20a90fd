package intake

// BuildingAnswers are collected by the building maintenance flow.
type BuildingAnswers struct {
	Name        string `json:"name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Company     string `json:"company,omitempty"`
	Room        string `json:"room,omitempty"`
	Problem     string `json:"problem,omitempty"`
	Description string `json:"description,omitempty"`
}

// ParkingAnswers are collected by the parking list flow.
type ParkingAnswers struct {
	// UserInfo is the free-form name, contacts and company block.
	UserInfo string `json:"user_info,omitempty"`
	Action   string `json:"action,omitempty"`
	Cars     string `json:"cars,omitempty"`
}

// Answers holds the values of one flow. Exactly one of Building and Parking
// is set, matching Flow.
type Answers struct {
	Flow     Flow             `json:"flow,omitempty"`
	Building *BuildingAnswers `json:"building,omitempty"`
	Parking  *ParkingAnswers  `json:"parking,omitempty"`
	Media    *Media           `json:"media,omitempty"`
}

func newAnswers(flow Flow) Answers {
	a := Answers{Flow: flow}
	switch flow {
	case FlowBuilding:
		a.Building = &BuildingAnswers{}
	case FlowParking:
		a.Parking = &ParkingAnswers{}
	}
	return a
}

func (a *Answers) building() *BuildingAnswers {
	if a.Building == nil {
		a.Building = &BuildingAnswers{}
	}
	return a.Building
}

func (a *Answers) parking() *ParkingAnswers {
	if a.Parking == nil {
		a.Parking = &ParkingAnswers{}
	}
	return a.Parking
}

// IsZero reports whether nothing has been collected.
func (a Answers) IsZero() bool {
	return a.Flow == "" && a.Building == nil && a.Parking == nil && a.Media == nil
}

// Clone returns a deep copy.
func (a Answers) Clone() Answers {
	out := Answers{Flow: a.Flow}
	if a.Building != nil {
		b := *a.Building
		out.Building = &b
	}
	if a.Parking != nil {
		p := *a.Parking
		out.Parking = &p
	}
	if a.Media != nil {
		m := *a.Media
		out.Media = &m
	}
	return out
}
