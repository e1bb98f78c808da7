package validation

var serverManaged = []string{"record_id", "user_id", "created_at", "updated_at"}

func healthRecordFields() map[string]Rule {
	return map[string]Rule{
		"date":              Date(),
		"sleep_time":        ClockTime(),
		"wake_time":         ClockTime(),
		"weight":            Number(0),
		"height":            Number(0),
		"exercise_duration": Number(0),
		"water_intake":      Number(0),
		"meals_count":       Integer(0),
		"sleep_quality":     Enum("poor", "fair", "good", "excellent"),
		"exercise_type":     String(0, 255),
		"medications":       String(0, 255),
		"symptoms":          String(0, 255),
		"stress_level":      Enum("low", "medium", "high"),
		"mood":              String(0, 255),
		"energy_level":      Enum("low", "medium", "high"),
		"notes":             String(0, 2000),
	}
}

// HealthRecordCreate validates the body of POST /form.
var HealthRecordCreate = Schema{Fields: healthRecordFields(), Ignored: serverManaged, Nullable: true}

// HealthRecordUpdate validates PUT and PATCH bodies; null clears a field.
var HealthRecordUpdate = Schema{Fields: healthRecordFields(), Ignored: serverManaged, Nullable: true}

// Register validates POST /auth/register.
var Register = Schema{
	Fields: map[string]Rule{
		"email":     Email(),
		"password":  Password(6),
		"firstName": String(2, 100),
		"lastName":  String(2, 100),
		"username":  String(1, 100),
	},
	Required: []string{"email", "password", "firstName", "lastName"},
}

// Login validates POST /auth/login.
var Login = Schema{
	Fields: map[string]Rule{
		"email":    Email(),
		"password": Password(6),
	},
	Required: []string{"email", "password"},
}

// UpdateProfile validates PATCH /auth/profile.
var UpdateProfile = Schema{
	Fields: map[string]Rule{
		"firstName":       String(2, 100),
		"lastName":        String(2, 100),
		"username":        String(1, 100),
		"dateOfBirth":     Date(),
		"gender":          Enum("male", "female", "other"),
		"height":          Number(0),
		"profileImageUrl": URL(),
	},
	Ignored: []string{"id", "email"},
}

// ProfileColumns maps profile body keys to users columns.
var ProfileColumns = map[string]string{
	"firstName":       "first_name",
	"lastName":        "last_name",
	"dateOfBirth":     "date_of_birth",
	"profileImageUrl": "profile_image_url",
}
