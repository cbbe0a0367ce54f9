package genai

import "fmt"

const petclinicSchema = `Tables:
- owners (id, first_name, last_name, address, city, telephone)
- pets (id, name, birth_date, type_id, owner_id)
- types (id, name)
- vets (id, first_name, last_name)
- specialties (id, name)
- vet_specialties (vet_id, specialty_id)
- visits (id, pet_id, visit_date, description)`

// DefaultQuery lists owners and their pets. It is used whenever no safe
// statement could be generated for a question.
const DefaultQuery = `SELECT o.first_name, o.last_name, p.name as pet_name, t.name as pet_type ` +
	`FROM owners o JOIN pets p ON o.id = p.owner_id JOIN types t ON p.type_id = t.id ` +
	`ORDER BY o.last_name, o.first_name LIMIT 20`

func classifyPrompt(q string) string {
	return fmt.Sprintf(`You route questions for a veterinary clinic assistant.

Question: %q

Decide whether answering needs data from the clinic database (owners, pets,
vets, visits) or is general pet care advice.

Answer with JSON only:
{"type": "DATABASE_QUERY" or "GENERAL_ADVICE", "reason": "short reason"}`, q)
}

func sqlPrompt(q, database string) string {
	return fmt.Sprintf(`Write one PostgreSQL SELECT statement for the %s database.

%s

Question: %q

Rules:
- read-only: a single SELECT (or WITH ... SELECT), no semicolons
- join tables as needed and alias name columns first_name, last_name, pet_name, pet_type
- add LIMIT 20

Answer with JSON only:
{"database": %q, "sql": "SELECT ...", "description": "what the query returns"}`, database, petclinicSchema, q, database)
}

func advicePrompt(q string) string {
	return fmt.Sprintf(`You are a friendly assistant for a veterinary clinic.

Question: %s

Give practical, general pet care guidance. Recommend seeing a
veterinarian for anything that could be a medical problem.`, q)
}

func groundedPrompt(q, context string) string {
	return fmt.Sprintf(`You are an assistant for a veterinary clinic with access to its records.

%s

Question: %s

Answer using only the records above. If they do not contain the answer,
say so plainly. Do not invent owners, pets or visits.`, context, q)
}
