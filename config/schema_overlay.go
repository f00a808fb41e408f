package config

// SchemaOverlayPath is where the document schema appears inside every CUE
// configuration package.
const SchemaOverlayPath = "ld2450_schema.cue"

// CUEPackage is the package name CUE configuration files must declare.
const CUEPackage = "ld2450"

const schemaOverlayContent = `package ld2450

#Distance: number | =~"^\\s*-?[0-9]+(\\.[0-9]+)?\\s*(mm|cm|m)?\\s*$"
#Duration: int | string

#Entity: {
    id?: string
    name?: string
    icon?: string
    device_class?: string
    entity_category?: "config" | "diagnostic"
    internal?: bool
    disabled_by_default?: bool
}

#SensorEntity: {
    #Entity
    accuracy_decimals?: int & >=0
}

#Measurement: {
    #SensorEntity
    unit_of_measurement?: string
    update_interval?: #Duration
}

#Switch: {
    #Entity
    inverted?: bool
}

#MaxDistance: {
    #Entity
    name: string
    initial_value?: #Distance
    step?: #Distance
    restore_value?: bool
    unit_of_measurement?: "m"
    mode?: "auto" | "box" | "slider"
}

#Target: {
    id?: string
    name?: string
    debug?: bool
    x_position?: #Measurement
    y_position?: #Measurement
    speed?: #Measurement
    distance?: #Measurement
    distance_resolution?: #Measurement
    angle?: #Measurement
}

#Point: {
    x: #Distance
    y: #Distance
}

#Zone: {
    id?: string
    name: string
    margin?: #Distance
    target_timeout?: #Duration
    polygon: [...{point: #Point}]
    occupancy?: #Entity
    target_count?: #SensorEntity
}

#LD2450: {
    id?: string
    name?: string
    uart_id?: string
    flip_x_axis?: bool
    fast_off_detection?: bool
    max_detection_distance?: #Distance | #MaxDistance
    max_distance_margin?: #Distance
    occupancy?: #Entity
    target_count?: #SensorEntity
    restart_button?: #Entity
    factory_reset_button?: #Entity
    tracking_mode_switch?: #Switch
    targets?: [...{target: #Target}]
    zones?: [...{zone: #Zone}]
}

#MQTT: {
    enabled: bool | *false
    broker?: string
    client_id?: string
    username?: string
    password?: string
    discovery_prefix?: string
    topic_prefix?: string
    qos?: 0 | 1 | 2
    keep_alive?: #Duration
    connect_timeout?: #Duration
    tls?: {
        ca_file?: string
        cert_file?: string
        key_file?: string
        server_name?: string
        insecure_skip_verify?: bool
    }
}

#Document: {
    ld2450: #LD2450
    logging?: {...}
    telemetry?: {...}
    mqtt?: #MQTT
    hot_reload?: bool
}

config: #Document
`

func init() {
	RegisterDefaultOverlay(func() error {
		return RegisterOverlayString(SchemaOverlayPath, schemaOverlayContent)
	})
}
