package models

import "time"

// Client is a person eligible for program enrollment.
type Client struct {
	ID              string    `db:"id" json:"id"`
	FirstName       string    `db:"first_name" json:"first_name"`
	LastName        string    `db:"last_name" json:"last_name"`
	Age             int       `db:"age" json:"age"`
	PhoneNumber     string    `db:"phone_number" json:"phone_number"`
	AreaOfResidence string    `db:"area_of_residence" json:"area_of_residence"`
	Profession      string    `db:"profession" json:"profession"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ClientProfile is a client with its enrollments.
type ClientProfile struct {
	Client
	Enrollments []EnrollmentDetail `json:"enrollments"`
}

// ClientFilter captures listing options for clients.
type ClientFilter struct {
	Search          string
	AreaOfResidence string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}

// ClientSearchResult wraps quick search matches.
type ClientSearchResult struct {
	Results []Client `json:"results"`
}
