package store

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pawhaven/pet-adoption-api/internal/models"
)

func TestPetFilterQueryStatusDefault(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   interface{}
	}{
		{"empty defaults to available", "", models.PetAvailable},
		{"explicit status kept", "adopted", "adopted"},
		{"all disables the filter", models.PetStatusAll, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := petFilterQuery(models.PetFilter{Status: tt.status})
			got, ok := query["status"]
			if tt.want == nil {
				if ok {
					t.Fatalf("status filter = %v, want none", got)
				}
				return
			}
			if !ok || got != tt.want {
				t.Fatalf("status filter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPetFilterQueryFields(t *testing.T) {
	age := 3
	query := petFilterQuery(models.PetFilter{
		Species: "dog",
		Breed:   "lab",
		Search:  "re",
		Age:     &age,
		Status:  models.PetStatusAll,
	})

	if query["species"] != "dog" {
		t.Errorf("species = %v", query["species"])
	}
	if query["breed"] != "lab" {
		t.Errorf("breed = %v", query["breed"])
	}
	if query["age"] != 3 {
		t.Errorf("age = %v", query["age"])
	}
	regex, ok := query["name"].(primitive.Regex)
	if !ok || regex.Pattern != "re" || regex.Options != "i" {
		t.Errorf("name = %v, want case-insensitive regex", query["name"])
	}
}

func TestPetUpdateDocOnlySetsProvidedFields(t *testing.T) {
	name := "Rex"
	status := models.PetAdopted
	doc := petUpdateDoc(models.PetUpdate{Name: &name, Status: &status})

	set, ok := doc["$set"].(bson.M)
	if !ok {
		t.Fatalf("update doc = %v, want $set", doc)
	}
	if set["name"] != "Rex" {
		t.Errorf("name = %v", set["name"])
	}
	if set["status"] != models.PetAdopted {
		t.Errorf("status = %v", set["status"])
	}
	if _, ok := set["species"]; ok {
		t.Error("species set without being provided")
	}
	if _, ok := set["updated_at"]; !ok {
		t.Error("updated_at not touched")
	}
}
