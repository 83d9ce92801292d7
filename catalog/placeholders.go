package catalog

import "chronoguess/core"

// Placeholders returns the closed offline set of safety images. Their URLs
// point at assets bundled with the client.
func Placeholders() []core.ImageMeta {
	return []core.ImageMeta{
		{ID: "placeholder-moon-landing", Title: "Apollo 11 Launch", Description: "Saturn V lifting off from Kennedy Space Center.", Year: 1969, Latitude: 28.5729, Longitude: -80.6490, LocationName: "Cape Canaveral, Florida", URL: "/static/placeholders/apollo11.jpg", Ready: true},
		{ID: "placeholder-berlin-wall", Title: "Fall of the Berlin Wall", Description: "Crowds gathering at the Brandenburg Gate.", Year: 1989, Latitude: 52.5163, Longitude: 13.3777, LocationName: "Berlin, Germany", URL: "/static/placeholders/berlin-wall.jpg", Ready: true},
		{ID: "placeholder-golden-gate", Title: "Golden Gate Bridge Opening", Description: "Pedestrians crossing on opening day.", Year: 1937, Latitude: 37.8199, Longitude: -122.4783, LocationName: "San Francisco, California", URL: "/static/placeholders/golden-gate.jpg", Ready: true},
		{ID: "placeholder-eiffel-tower", Title: "Eiffel Tower Construction", Description: "The tower's upper levels under construction.", Year: 1888, Latitude: 48.8584, Longitude: 2.2945, LocationName: "Paris, France", URL: "/static/placeholders/eiffel.jpg", Ready: true},
		{ID: "placeholder-tokyo-olympics", Title: "Tokyo Olympic Stadium", Description: "Opening ceremony of the Summer Games.", Year: 1964, Latitude: 35.6778, Longitude: 139.7145, LocationName: "Tokyo, Japan", URL: "/static/placeholders/tokyo-1964.jpg", Ready: true},
		{ID: "placeholder-sydney-opera", Title: "Sydney Opera House Opening", Description: "The sails of the opera house on opening day.", Year: 1973, Latitude: -33.8568, Longitude: 151.2153, LocationName: "Sydney, Australia", URL: "/static/placeholders/sydney-opera.jpg", Ready: true},
		{ID: "placeholder-panama-canal", Title: "Panama Canal Opening", Description: "SS Ancon passing through the Culebra Cut.", Year: 1914, Latitude: 9.0800, Longitude: -79.6800, LocationName: "Panama Canal, Panama", URL: "/static/placeholders/panama.jpg", Ready: true},
	}
}
