package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		IsActive:     true,
	}

	return user, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

// 随机生成一个还未开始的班表，时长为 7~30 天
func GenerateRandomSchedule(ownerID int64) *domain.Schedule {
	return &domain.Schedule{
		Name:        "班表" + GenerateRandomID(3, 3),
		Description: "班表描述" + GenerateRandomID(20, 10),
		OwnerID:     ownerID,
		Duration:    int32(rand.Intn(24) + 7),
	}
}

// 随机生成一天内互不重叠的时段，最多六段
func GenerateRandomTimeSlots(dayID int64) []*domain.TimeSlot {
	slotsNum := rand.Intn(6) + 1
	hourPerSlot := 24 / slotsNum

	slots := make([]*domain.TimeSlot, slotsNum)
	for i := range slots {
		startHour := i * hourPerSlot
		endHour := rand.Intn(hourPerSlot) + startHour

		startMinute := rand.Intn(30)    // 0~29
		endMinute := rand.Intn(30) + 30 // 30~59

		slots[i] = &domain.TimeSlot{
			ScheduleDayID: dayID,
			StartTime:     fmt.Sprintf("%02d:%02d:00", startHour, startMinute),
			EndTime:       fmt.Sprintf("%02d:%02d:00", endHour, endMinute),
			IsAvailable:   true,
		}
	}

	return slots
}

// 随机生成从明天开始的连续日期
func GenerateScheduleDays(scheduleID int64, duration int32) []*domain.ScheduleDay {
	startDate := time.Now().AddDate(0, 0, 1)

	days := make([]*domain.ScheduleDay, duration)
	for i := range days {
		days[i] = &domain.ScheduleDay{
			ScheduleID: scheduleID,
			Date:       startDate.AddDate(0, 0, i).Format("2006-01-02"),
		}
	}

	return days
}

// 使用 Fisher-Yates 洗牌算法来生成一个随机子集
func GenerateRandomSubset(arr []int64) []int64 {
	arrCopy := append([]int64{}, arr...) // 复制数组，避免修改原数组

	for i := 0; i < len(arrCopy)-1; i++ {
		j := rand.Intn(len(arrCopy)-i) + i
		arrCopy[i], arrCopy[j] = arrCopy[j], arrCopy[i]
	}

	l := rand.Intn(len(arrCopy)) + 1
	return arrCopy[:l]
}
