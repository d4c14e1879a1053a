// Package nasaapi is the HTTP client for NASA's Mars Rover Photos API.
// It performs the actual network call for a validated query and returns the
// raw response payload. Retry policy lives here, at the transport boundary,
// not in the caching coordinator.
package nasaapi

import "encoding/json"

// PhotosResponse is the wire format of a photo query response.
type PhotosResponse struct {
	Photos []Photo `json:"photos"`
}

// Photo is a single rover photograph record.
type Photo struct {
	ID        int        `json:"id"`
	Sol       int        `json:"sol"`
	Camera    CameraInfo `json:"camera"`
	ImgSrc    string     `json:"img_src"`
	EarthDate string     `json:"earth_date"`
	Rover     RoverInfo  `json:"rover"`
}

// CameraInfo identifies the camera a photo was taken with.
type CameraInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	RoverID  int    `json:"rover_id"`
	FullName string `json:"full_name"`
}

// RoverInfo identifies the rover a photo belongs to.
type RoverInfo struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	LandingDate string `json:"landing_date"`
	LaunchDate  string `json:"launch_date"`
	Status      string `json:"status"`
}

// ImageURLs decodes a raw payload and returns up to max image source links.
// A max of zero or less returns all links.
func ImageURLs(payload []byte, max int) ([]string, error) {
	var resp PhotosResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(resp.Photos))
	for _, photo := range resp.Photos {
		if max > 0 && len(urls) >= max {
			break
		}
		urls = append(urls, photo.ImgSrc)
	}
	return urls, nil
}
