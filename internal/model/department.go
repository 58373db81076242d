package model

type Department struct {
	ID             string `db:"id" json:"id"`
	Code           string `db:"code" json:"code"`
	Name           string `db:"name" json:"name"`
	IsPresidential bool   `db:"is_presidential" json:"is_presidential"`
	IsActive       bool   `db:"is_active" json:"is_active"`
}
