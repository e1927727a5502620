// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package catapi

// The jsonapi tags drive both the --schema listing and the output pipeline,
// which addresses attributes as attributes.<name>.

// Weight is a breed's weight range in both unit systems, e.g. "3 - 5".
type Weight struct {
	Imperial string `json:"imperial"`
	Metric   string `json:"metric"`
}

// Image is the catalog's image metadata. URL is absent for some records.
type Image struct {
	ID     string `json:"id" jsonapi:"primary,images"`
	URL    string `json:"url,omitempty" jsonapi:"attr,url,omitempty"`
	Width  int    `json:"width,omitempty" jsonapi:"attr,width,omitempty"`
	Height int    `json:"height,omitempty" jsonapi:"attr,height,omitempty"`
}

// Breed is a catalog breed record.
type Breed struct {
	ID               string  `json:"id" jsonapi:"primary,breeds"`
	Name             string  `json:"name" jsonapi:"attr,name"`
	Temperament      string  `json:"temperament,omitempty" jsonapi:"attr,temperament,omitempty"`
	Description      string  `json:"description,omitempty" jsonapi:"attr,description,omitempty"`
	Origin           string  `json:"origin,omitempty" jsonapi:"attr,origin,omitempty"`
	CountryCode      string  `json:"country_code,omitempty" jsonapi:"attr,country_code,omitempty"`
	Weight           *Weight `json:"weight,omitempty" jsonapi:"attr,weight,omitempty"`
	LifeSpan         string  `json:"life_span,omitempty" jsonapi:"attr,life_span,omitempty"`
	WikipediaURL     string  `json:"wikipedia_url,omitempty" jsonapi:"attr,wikipedia_url,omitempty"`
	ReferenceImageID string  `json:"reference_image_id,omitempty" jsonapi:"attr,reference_image_id,omitempty"`
	Image            *Image  `json:"image,omitempty" jsonapi:"attr,image,omitempty"`

	Indoor           int `json:"indoor" jsonapi:"attr,indoor"`
	Adaptability     int `json:"adaptability" jsonapi:"attr,adaptability"`
	AffectionLevel   int `json:"affection_level" jsonapi:"attr,affection_level"`
	ChildFriendly    int `json:"child_friendly" jsonapi:"attr,child_friendly"`
	DogFriendly      int `json:"dog_friendly" jsonapi:"attr,dog_friendly"`
	EnergyLevel      int `json:"energy_level" jsonapi:"attr,energy_level"`
	Grooming         int `json:"grooming" jsonapi:"attr,grooming"`
	HealthIssues     int `json:"health_issues" jsonapi:"attr,health_issues"`
	Intelligence     int `json:"intelligence" jsonapi:"attr,intelligence"`
	SheddingLevel    int `json:"shedding_level" jsonapi:"attr,shedding_level"`
	SocialNeeds      int `json:"social_needs" jsonapi:"attr,social_needs"`
	StrangerFriendly int `json:"stranger_friendly" jsonapi:"attr,stranger_friendly"`
	Vocalisation     int `json:"vocalisation" jsonapi:"attr,vocalisation"`
	Hypoallergenic   int `json:"hypoallergenic" jsonapi:"attr,hypoallergenic"`
}

// ImageID returns the id of the breed's reference image, falling back to the
// embedded image record.
func (b *Breed) ImageID() string {
	if b.ReferenceImageID != "" {
		return b.ReferenceImageID
	}
	if b.Image != nil {
		return b.Image.ID
	}
	return ""
}
