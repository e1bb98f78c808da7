// Package model holds the records exchanged between the repositories and the
// HTTP layer. JSON tags match the column names of the backing tables.
package model

import "time"

// HealthRecord is one entry of a user's health diary (table health_records).
// Optional measurements are pointers so an unset column marshals as null.
type HealthRecord struct {
	RecordID         string     `json:"record_id"`
	UserID           string     `json:"user_id"`
	Date             *string    `json:"date"`
	SleepTime        *string    `json:"sleep_time"`
	WakeTime         *string    `json:"wake_time"`
	Weight           *float64   `json:"weight"`
	Height           *float64   `json:"height"`
	ExerciseDuration *float64   `json:"exercise_duration"`
	WaterIntake      *float64   `json:"water_intake"`
	MealsCount       *int       `json:"meals_count"`
	SleepQuality     *string    `json:"sleep_quality"`
	ExerciseType     *string    `json:"exercise_type"`
	Medications      *string    `json:"medications"`
	Symptoms         *string    `json:"symptoms"`
	StressLevel      *string    `json:"stress_level"`
	Mood             *string    `json:"mood"`
	EnergyLevel      *string    `json:"energy_level"`
	Notes            *string    `json:"notes"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}
