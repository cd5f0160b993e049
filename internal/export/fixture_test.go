package export

import "github.com/sells-group/venuecluster/internal/model"

func intPtr(i int) *int { return &i }

func fixtureRun() *model.Run {
	return &model.Run{
		ID:     "run-1",
		Status: model.RunStatusComplete,
		Neighborhoods: []model.Neighborhood{
			{ID: "Atocha, Madrid, ES", Name: "Atocha", District: "Arganzuela", City: "Madrid", Country: "ES", Location: &model.Point{Lat: 40.4065, Lng: -3.6895}, VenueCount: 3, Cluster: intPtr(0), TopCategories: []string{"Café", "Park", "Museum"}},
			{ID: "Louvre, Paris, FR", Name: "Louvre", City: "Paris", Country: "FR", Location: &model.Point{Lat: 48.8606, Lng: 2.3376}, VenueCount: 1, Cluster: intPtr(1), TopCategories: []string{"Museum", "Café", "Park"}},
			{ID: "Nowhere, Paris, FR", Name: "Nowhere", City: "Paris", Country: "FR"},
		},
		Venues: []model.Venue{
			{Neighborhood: "Atocha, Madrid, ES", Name: "El Brillante", Lat: 40.4080, Lng: -3.6930, Category: "Café"},
			{Neighborhood: "Atocha, Madrid, ES", Name: "Café Delic", Lat: 40.4110, Lng: -3.7100, Category: "Café"},
			{Neighborhood: "Atocha, Madrid, ES", Name: "Retiro", Lat: 40.4100, Lng: -3.6880, Category: "Park"},
			{Neighborhood: "Louvre, Paris, FR", Name: "Musée du Louvre", Lat: 48.8606, Lng: 2.3376, Category: "Museum"},
		},
		Categories: []string{"Café", "Museum", "Park"},
		Clusters: []model.ClusterSummary{
			{Label: 0, Size: 1, Members: []string{"Atocha, Madrid, ES"}, TopCategories: []string{"Café", "Park"}},
			{Label: 1, Size: 1, Members: []string{"Louvre, Paris, FR"}, TopCategories: []string{"Museum"}},
		},
	}
}
