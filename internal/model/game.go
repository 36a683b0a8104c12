package model

import "fmt"

// Game is the title a session token was issued for
type Game int

const (
	GameLittleBigPlanet1    Game = 0
	GameLittleBigPlanet2    Game = 1
	GameLittleBigPlanet3    Game = 2
	GameLittleBigPlanetVita Game = 3
	GameLittleBigPlanetPSP  Game = 4
)

var gameNames = map[Game]string{
	GameLittleBigPlanet1:    "lbp1",
	GameLittleBigPlanet2:    "lbp2",
	GameLittleBigPlanet3:    "lbp3",
	GameLittleBigPlanetVita: "lbpvita",
	GameLittleBigPlanetPSP:  "lbppsp",
}

func (g Game) String() string {
	if name, ok := gameNames[g]; ok {
		return name
	}
	return fmt.Sprintf("game(%d)", int(g))
}

// IsValid checks if the game is a known title
func (g Game) IsValid() bool {
	_, ok := gameNames[g]
	return ok
}

// Platform is the console or runtime a session token was issued for
type Platform int

const (
	PlatformPS3   Platform = 0
	PlatformRPCS3 Platform = 1
	PlatformVita  Platform = 2
	PlatformPSP   Platform = 3
)

var platformNames = map[Platform]string{
	PlatformPS3:   "ps3",
	PlatformRPCS3: "rpcs3",
	PlatformVita:  "vita",
	PlatformPSP:   "psp",
}

func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return fmt.Sprintf("platform(%d)", int(p))
}

// IsValid checks if the platform is known
func (p Platform) IsValid() bool {
	_, ok := platformNames[p]
	return ok
}

// ParseGame resolves a game by its short name, as used in query strings
func ParseGame(name string) (Game, bool) {
	for g, n := range gameNames {
		if n == name {
			return g, true
		}
	}
	return 0, false
}

// ParsePlatform resolves a platform by its short name
func ParsePlatform(name string) (Platform, bool) {
	for p, n := range platformNames {
		if n == name {
			return p, true
		}
	}
	return 0, false
}
