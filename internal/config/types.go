package config

import "time"

// Config matches the shape of monitor.yaml.
type Config struct {
	Server  Server  `yaml:"server" koanf:"server"`
	Web     Web     `yaml:"web" koanf:"web"`
	Log     Log     `yaml:"log" koanf:"log"`
	Console Console `yaml:"console" koanf:"console"`
	Timing  Timing  `yaml:"timing" koanf:"timing"`
}

// Server describes how to launch the Minecraft server.
type Server struct {
	Location string        `yaml:"location" koanf:"location"` // working directory, holds eula.txt
	Java     string        `yaml:"java" koanf:"java"`
	Jar      string        `yaml:"jar" koanf:"jar"`
	Memory   Memory        `yaml:"memory" koanf:"memory"`
	Args     string        `yaml:"args" koanf:"args"` // extra JVM flags, "off" for none
	Stop     string        `yaml:"stop" koanf:"stop"` // console command that stops the server
	Grace    time.Duration `yaml:"grace" koanf:"grace"`
}

type Memory struct {
	Min string `yaml:"min" koanf:"min"`
	Max string `yaml:"max" koanf:"max"`
}

type Web struct {
	Address  string `yaml:"address" koanf:"address"`
	Port     int    `yaml:"port" koanf:"port"`
	Public   string `yaml:"public" koanf:"public"`
	Index    string `yaml:"index" koanf:"index"`
	Eula     string `yaml:"eula" koanf:"eula"`
	Starting string `yaml:"starting" koanf:"starting"`
	Serial   bool   `yaml:"serial" koanf:"serial"`
}

type Log struct {
	Level     string `yaml:"level" koanf:"level"`
	Verbosity string `yaml:"verbosity" koanf:"verbosity"` // none | mine | web | mineweb
}

type Console struct {
	Prefix int `yaml:"prefix" koanf:"prefix"` // width of the server's log prefix
}

type Timing struct {
	Poll time.Duration `yaml:"poll" koanf:"poll"`
	Wait time.Duration `yaml:"wait" koanf:"wait"`
}
