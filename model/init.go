package model

import "tealchat/platform"

func InstallDB() {
	db := platform.DB
	if err := db.AutoMigrate(
		&User{},
		&Conversation{},
		&Message{}); err != nil {
		panic(err)
	}
}
