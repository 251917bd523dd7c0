package music

// Request bodies. Validation runs in gin binding with the shared engine;
// field names in errors are the json names.

type CreateBandRequest struct {
	Name       string  `json:"name" validate:"required,min=1,max=100"`
	Genre      Genre   `json:"genre" validate:"required,oneof=ROCK POP JAZZ BLUES FOLK ELECTRONIC HIP_HOP"`
	FormedYear *int    `json:"formed_year" validate:"omitempty,min=1900,max=2030"`
	Country    *string `json:"country" validate:"omitempty,max=100"`
}

// UpdateBandRequest changes only the fields present in the body.
type UpdateBandRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=100"`
	Genre      *Genre  `json:"genre" validate:"omitempty,oneof=ROCK POP JAZZ BLUES FOLK ELECTRONIC HIP_HOP"`
	FormedYear *int    `json:"formed_year" validate:"omitempty,min=1900,max=2030"`
	Country    *string `json:"country" validate:"omitempty,max=100"`
}

func (r UpdateBandRequest) changes() map[string]any {
	out := map[string]any{}
	if r.Name != nil {
		out["name"] = *r.Name
	}
	if r.Genre != nil {
		out["genre"] = *r.Genre
	}
	if r.FormedYear != nil {
		out["formed_year"] = *r.FormedYear
	}
	if r.Country != nil {
		out["country"] = *r.Country
	}
	return out
}

type CreateMusicianRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=100"`
	BandID uint   `json:"band_id" validate:"required,min=1"`
}

type UpdateMusicianRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=100"`
	BandID *uint   `json:"band_id" validate:"omitempty,min=1"`
}

func (r UpdateMusicianRequest) changes() map[string]any {
	out := map[string]any{}
	if r.Name != nil {
		out["name"] = *r.Name
	}
	if r.BandID != nil {
		out["band_id"] = *r.BandID
	}
	return out
}

type CreateMembershipRequest struct {
	BandID     uint       `json:"band_id" validate:"required,min=1"`
	MusicianID uint       `json:"musician_id" validate:"required,min=1"`
	Instrument Instrument `json:"instrument" validate:"required,oneof=GUITAR BASS DRUMS VOCALS KEYBOARD VIOLIN SAXOPHONE"`
}
